// Package aicache implements an AI query cache: given a prompt and a request
// context (logical context string + model), it decides whether a previously
// computed response can be reused instead of re-invoking an expensive backend.
//
// The decision pipeline tries three strategies in order:
//
//	exact    - hash of the normalized prompt + context + model
//	semantic - nearest-neighbor search over prompt embeddings
//	intent   - entries sharing a deterministic intent label
//
// Every invocation, hit, miss or internal failure, produces exactly one
// immutable audit record (a TOON operation) capturing token and cost savings.
// Records are persisted asynchronously and never block or fail the caller.
//
// Components:
//   - store.Store: capacity-bounded store of immutable entries with
//     copy-on-write per-key replacement and LRU/LFU/FIFO eviction.
//   - index.Index: nearest-neighbor search over embeddings. The engine
//     validates matches against the live store and prunes dangling keys.
//   - embedding.Embedder / token.Counter: external collaborator ports.
//   - toon.Recorder: bounded async pipeline from decisions to audit sinks
//     and the analytics aggregator.
//   - storage.Backend: optional persistent snapshot of entries for warm
//     starts (Redis, BigCache), framed and self-healing on corruption.
//
// Failure policy: backend faults degrade to a miss-shaped result tagged
// cache_error. The only error surfaced to callers is malformed input.
package aicache
