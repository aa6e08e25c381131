// Package portfolio turns free-text trading instructions into executed,
// auditable changes to a portfolio's holdings and cash.
//
// The pipeline is a single-writer batch: an advisory document is parsed into
// typed orders, a pure planner decides what the current cash and holdings can
// afford under the configured partial-fill policy, and the execution engine
// applies the resulting schedule to the ledger, one order at a time. Every
// terminal order leaves exactly one record in an append-only trade log, and
// the ledger snapshot is persisted atomically at the end of the run.
//
// The core functionalities include:
//   - Order Parsing: Recovering structured orders from a constrained markdown
//     sub-language. Any deviation from the grammar is a localized, reported
//     error, never a guess.
//   - Cash-Flow Planning: Scheduling sells before buys, resolving the "all"
//     sentinel against current holdings, and applying one of four partial-fill
//     policies to underfunded buys.
//   - Execution: A small per-order state machine mutating the ledger through
//     batch-atomic commits that enforce non-negative cash and share counts.
//   - Performance Validation: Recomputing net asset value by independent
//     methods (current holdings, trade-log replay, history export) and
//     reporting any divergence instead of silently correcting it.
//
// This package serves as the foundational logic for the `tsub` command-line
// tool, ensuring that all operations are consistent and based on a single
// source of truth.
package portfolio
