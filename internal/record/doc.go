// Package record holds the machinery shared by field-tagged record types:
// explicit presence, the decode loop, serialization helpers, ordering and
// hashing over present fields.
//
// Records are plain values with no internal locking. Copy a record before
// handing it to another goroutine that may mutate it.
package record
