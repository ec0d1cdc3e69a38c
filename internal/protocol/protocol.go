package protocol

import "io"

// Reader decodes the primitive stream of one strategy.
type Reader interface {
	ReadStructBegin() (StructHeader, error)
	ReadStructEnd() error
	ReadFieldBegin() (FieldHeader, error)
	ReadFieldEnd() error
	ReadMapBegin() (MapHeader, error)
	ReadMapEnd() error
	ReadListBegin() (ListHeader, error)
	ReadListEnd() error
	ReadSetBegin() (ListHeader, error)
	ReadSetEnd() error

	ReadBool() (bool, error)
	ReadI8() (int8, error)
	ReadI16() (int16, error)
	ReadI32() (int32, error)
	ReadI64() (int64, error)
	ReadDouble() (float64, error)
	ReadString() (string, error)
	ReadBinary() ([]byte, error)

	Limits() Limits
}

// Writer encodes the primitive stream of one strategy. Output is buffered
// until Flush.
type Writer interface {
	WriteStructBegin(h StructHeader) error
	WriteStructEnd() error
	WriteFieldBegin(h FieldHeader) error
	WriteFieldEnd() error
	WriteFieldStop() error
	WriteMapBegin(h MapHeader) error
	WriteMapEnd() error
	WriteListBegin(h ListHeader) error
	WriteListEnd() error
	WriteSetBegin(h ListHeader) error
	WriteSetEnd() error

	WriteBool(v bool) error
	WriteI8(v int8) error
	WriteI16(v int16) error
	WriteI32(v int32) error
	WriteI64(v int64) error
	WriteDouble(v float64) error
	WriteString(v string) error
	WriteBinary(v []byte) error

	Flush() error
}

// Factory builds readers and writers for one strategy.
type Factory interface {
	// ID is the stable identifier carried in frame headers.
	ID() uint32
	Name() string
	ContentType() string
	NewReader(r io.Reader, limits Limits) Reader
	NewWriter(w io.Writer) Writer
}

// Limits constrains decode memory use.
type Limits struct {
	MaxStringBytes    int
	MaxContainerItems int
	MaxDepth          int
}

func DefaultLimits() Limits {
	return Limits{
		MaxStringBytes:    16 * 1024 * 1024,
		MaxContainerItems: 1 << 20,
		MaxDepth:          64,
	}
}

// CheckString validates a decoded length prefix against l.
func (l Limits) CheckString(n int64) error {
	if n < 0 {
		return ErrInvalidLength
	}
	if l.MaxStringBytes > 0 && n > int64(l.MaxStringBytes) {
		return ErrSizeLimit
	}
	return nil
}

// CheckContainer validates a decoded container size against l.
func (l Limits) CheckContainer(n int64) error {
	if n < 0 {
		return ErrInvalidLength
	}
	if l.MaxContainerItems > 0 && n > int64(l.MaxContainerItems) {
		return ErrSizeLimit
	}
	return nil
}
