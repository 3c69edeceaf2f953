// Package api defines the contract the orchestration core requires from the
// remote agent service: turn submission, an incremental event stream,
// pending-approval lookup, and turn cancellation.
//
// The wire format is deliberately opaque. The core only depends on the
// stop-reason enumeration, approval descriptors, a run identifier, and basic
// timing/usage metadata. ParseEvent converts loosely typed wire maps into
// the typed events consumed by the stream drainer.
package api
