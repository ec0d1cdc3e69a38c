package namespace

import "errors"

var (
	ErrNotFound     = errors.New("namespace: not found")
	ErrNotNamespace = errors.New("namespace: not a namespace")
	ErrNotEmpty     = errors.New("namespace: namespace not empty")
	ErrExists       = errors.New("namespace: entry exists with a different kind")
	ErrInvalidName  = errors.New("namespace: invalid name")
	ErrCorruptEntry = errors.New("namespace: stored entry does not decode")
)
