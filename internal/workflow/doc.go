// Package workflow drives the capture, triage, review, and reconciliation
// cycle for product captures.
//
// The Orchestrator accepts one capture at a time, partitions extraction
// results by confidence, auto-commits the confident ones and parks the rest
// in a review queue. The Reconciler owns the create-vs-update decision and
// the pure merge into the canonical, session-scoped product list. The
// Synchronizer replaces that list wholesale when the active session changes
// and discards fetches that were superseded before they landed.
//
// Treat this package as the single source of truth for triage semantics;
// the api package is transport only and the cmd package is presentation.
package workflow
