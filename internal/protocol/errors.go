package protocol

import (
	"errors"
	"fmt"
)

// ErrMalformed is the root of every stream-level decode failure.
var ErrMalformed = errors.New("protocol: malformed stream")

var (
	ErrTruncated       = fmt.Errorf("%w: truncated data", ErrMalformed)
	ErrInvalidLength   = fmt.Errorf("%w: invalid length", ErrMalformed)
	ErrUnsupportedType = fmt.Errorf("%w: unsupported wire type", ErrMalformed)
	ErrDepthExceeded   = fmt.Errorf("%w: nesting depth exceeded", ErrMalformed)
	ErrSizeLimit       = fmt.Errorf("%w: size limit exceeded", ErrMalformed)
	ErrInvalidBool     = fmt.Errorf("%w: invalid bool value", ErrMalformed)
)

// ErrUnknownProtocol is returned when no strategy matches a name or id.
var ErrUnknownProtocol = errors.New("protocol: unknown protocol")

// IsMalformed reports whether err came from a malformed or truncated stream.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}
