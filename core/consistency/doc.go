// Package consistency defines the consistency levels a resource instance
// can be configured with and the rules for resolving the effective level
// of an outgoing operation.
//
// Levels are ordered strongest to weakest:
//
//   - [Atomic]: linearizable reads and writes; all instances of a resource
//     observe a single global total order.
//   - [Sequential]: linearizable writes, reads ordered relative to the
//     issuing session.
//   - [Causal]: writes ordered per session, causally consistent reads.
//   - [Eventual]: no write ordering guarantee, causally consistent reads.
//
// Each level splits into a write half and a read half. Commands are
// submitted with the write half, queries with the read half. An operation
// type may pin its own static half (see [ResolveWrite] and [ResolveRead]);
// a static level always wins over the instance configuration so that
// safety-critical operations can force stronger guarantees no matter how
// the caller configured the instance.
package consistency
