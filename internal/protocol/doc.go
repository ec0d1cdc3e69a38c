// Package protocol owns the abstract wire contract for field-tagged records.
//
// Ownership boundary:
// - wire type identifiers and field headers
// - Reader/Writer interfaces implemented by concrete strategies (binary, compact)
// - type-directed skipping of unknown values
// - malformed-stream errors
package protocol
