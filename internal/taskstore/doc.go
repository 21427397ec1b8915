// Package taskstore implements the coordination store described in
// SPEC_FULL.md §6: a key-value store with string, list, sorted-set, and
// pub/sub shapes, shared by the scheduler, worker runtime, and rate
// limiter.
//
// [Store] is the wire contract; [MemoryStore] is the only implementation
// shipped here. The original system leans on Redis for this role, but no
// Redis client appears anywhere in the reference corpus this module was
// grounded on, so the contract is expressed as a local interface a future
// Redis-backed adapter could satisfy, backed for now by an in-process,
// mutex-guarded implementation that preserves the same semantics
// (TTL expiry, append-only lists, sorted-set range queries, fan-out
// pub/sub channels).
package taskstore
