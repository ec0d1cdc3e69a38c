package thriftgen

import "errors"

var (
	ErrUnknownField   = errors.New("thriftgen: unknown field")
	ErrFieldValueType = errors.New("thriftgen: field value has wrong type")
)
