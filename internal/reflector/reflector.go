// Package reflector derives stable message-type names from Go values.
package reflector

import (
	"reflect"
	"sync"
)

var (
	mu    sync.RWMutex
	cache = make(map[reflect.Type]string)
)

// NameOf returns the fully qualified type name of x ("pkgpath.Type"),
// dereferencing pointers. Results are cached per reflect.Type.
func NameOf(x any) string {
	t := reflect.TypeOf(x)
	if t == nil {
		return ""
	}

	mu.RLock()
	name, ok := cache[t]
	mu.RUnlock()
	if ok {
		return name
	}

	e := t
	if e.Kind() == reflect.Pointer {
		e = e.Elem()
	}
	name = e.PkgPath() + "." + e.Name()

	mu.Lock()
	cache[t] = name
	mu.Unlock()
	return name
}
