package consistency

import "fmt"

// Level is the per-instance consistency configuration. The zero value is
// Atomic, the strongest level.
type Level int8

const (
	// Atomic guarantees a single global total order for reads and writes
	// across all instances of a resource.
	Atomic Level = iota
	// Sequential guarantees linearizable writes and session-ordered reads.
	Sequential
	// Causal guarantees session-ordered writes and causally ordered reads.
	Causal
	// Eventual guarantees causally ordered reads only.
	Eventual
)

// Write is the write half of a consistency level, attached to commands.
type Write int8

const (
	WriteLinearizable Write = iota
	WriteSequential
	WriteNone
)

// Read is the read half of a consistency level, attached to queries.
type Read int8

const (
	ReadLinearizable Read = iota
	ReadSequential
	ReadCausal
)

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	return l >= Atomic && l <= Eventual
}

// WriteConsistency returns the write half used for commands submitted at
// this level.
func (l Level) WriteConsistency() Write {
	switch l {
	case Sequential:
		return WriteLinearizable
	case Causal:
		return WriteSequential
	case Eventual:
		return WriteNone
	default:
		return WriteLinearizable
	}
}

// ReadConsistency returns the read half used for queries submitted at
// this level.
func (l Level) ReadConsistency() Read {
	switch l {
	case Sequential:
		return ReadSequential
	case Causal, Eventual:
		return ReadCausal
	default:
		return ReadLinearizable
	}
}

func (l Level) String() string {
	switch l {
	case Atomic:
		return "atomic"
	case Sequential:
		return "sequential"
	case Causal:
		return "causal"
	case Eventual:
		return "eventual"
	default:
		return fmt.Sprintf("level(%d)", int8(l))
	}
}

func (w Write) String() string {
	switch w {
	case WriteLinearizable:
		return "linearizable"
	case WriteSequential:
		return "sequential"
	case WriteNone:
		return "none"
	default:
		return fmt.Sprintf("write(%d)", int8(w))
	}
}

func (r Read) String() string {
	switch r {
	case ReadLinearizable:
		return "linearizable"
	case ReadSequential:
		return "sequential"
	case ReadCausal:
		return "causal"
	default:
		return fmt.Sprintf("read(%d)", int8(r))
	}
}

// StaticWrite is implemented by commands that pin a non-negotiable write
// consistency regardless of the instance configuration.
type StaticWrite interface {
	WriteConsistency() Write
}

// StaticRead is implemented by queries that pin a non-negotiable read
// consistency regardless of the instance configuration.
type StaticRead interface {
	ReadConsistency() Read
}

// ResolveWrite returns the effective write consistency for a command: the
// command's static level when it declares one, the instance level's write
// half otherwise.
func ResolveWrite(instance Level, cmd any) Write {
	if s, ok := cmd.(StaticWrite); ok {
		return s.WriteConsistency()
	}
	return instance.WriteConsistency()
}

// ResolveRead returns the effective read consistency for a query: the
// query's static level when it declares one, the instance level's read
// half otherwise.
func ResolveRead(instance Level, query any) Read {
	if s, ok := query.(StaticRead); ok {
		return s.ReadConsistency()
	}
	return instance.ReadConsistency()
}
