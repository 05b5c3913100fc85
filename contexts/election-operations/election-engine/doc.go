// Package electionengine implements the election lifecycle and vote tally
// core inside the election-operations context.
//
// The module owns election status transitions (draft, active, completed with
// a single active election at a time), idempotent duplicate-safe vote
// recording, derived results computation, and change-event production through
// the outbox-backed relay. Business rules live in the application/domain
// layers; storage, cache and transport concerns sit behind ports and
// adapters.
package electionengine
