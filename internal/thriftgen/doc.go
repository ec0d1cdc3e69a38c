// Package thriftgen holds the NamespaceListing record: one directory entry of
// a namespace listing, naming a child and whether it is itself a namespace.
package thriftgen
