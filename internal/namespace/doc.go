// Package namespace stores NamespaceListing entries in a path-keyed directory
// tree. Every key is a cleaned absolute path and every value is the
// binary-encoded listing for that path. The root "/" always exists.
package namespace
