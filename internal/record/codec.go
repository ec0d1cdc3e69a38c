package record

import (
	"bytes"
	"io"

	"github.com/danmuck/nslisting/internal/protocol"
	"github.com/danmuck/nslisting/internal/protocol/schema"
)

// Struct is implemented by every field-tagged record type.
type Struct interface {
	// Read replaces the receiver's state with one decoded struct value.
	Read(r protocol.Reader) error
	// Write validates the receiver and encodes it. It never mutates the record.
	Write(w protocol.Writer) error
	Validate() error
}

// ReadStruct drives the field loop of one struct value. read is called for
// every field the schema knows with a matching wire type; anything else is
// skipped by type so newer writers do not break older readers.
func ReadStruct(r protocol.Reader, s *schema.Struct, read func(f schema.Field) error) error {
	if _, err := r.ReadStructBegin(); err != nil {
		return err
	}
	for {
		h, err := r.ReadFieldBegin()
		if err != nil {
			return err
		}
		if h.IsStop() {
			break
		}
		if f, ok := s.FieldByID(h.ID); ok && f.Type == h.Type {
			err = read(f)
		} else {
			err = protocol.Skip(r, h.Type)
		}
		if err != nil {
			return err
		}
		if err := r.ReadFieldEnd(); err != nil {
			return err
		}
	}
	return r.ReadStructEnd()
}

// WriteField frames one present field value.
func WriteField(w protocol.Writer, f schema.Field, write func() error) error {
	if err := w.WriteFieldBegin(f.Header()); err != nil {
		return err
	}
	if err := write(); err != nil {
		return err
	}
	return w.WriteFieldEnd()
}

// WriteStruct writes the struct envelope around fields.
func WriteStruct(w protocol.Writer, s *schema.Struct, fields func() error) error {
	if err := w.WriteStructBegin(s.Header()); err != nil {
		return err
	}
	if err := fields(); err != nil {
		return err
	}
	if err := w.WriteFieldStop(); err != nil {
		return err
	}
	return w.WriteStructEnd()
}

// Marshal encodes s into a fresh buffer.
func Marshal(s Struct, f protocol.Factory) ([]byte, error) {
	var buf bytes.Buffer
	w := f.NewWriter(&buf)
	if err := s.Write(w); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data into s with default limits.
func Unmarshal(data []byte, s Struct, f protocol.Factory) error {
	return UnmarshalWithLimits(data, s, f, protocol.DefaultLimits())
}

func UnmarshalWithLimits(data []byte, s Struct, f protocol.Factory, limits protocol.Limits) error {
	return s.Read(f.NewReader(bytes.NewReader(data), limits))
}

// Encode writes s to out only after it encoded completely, so a validation
// failure leaves out untouched.
func Encode(out io.Writer, s Struct, f protocol.Factory) error {
	b, err := Marshal(s, f)
	if err != nil {
		return err
	}
	_, err = out.Write(b)
	return err
}

// Decode reads one struct value from in. The reader consumes exactly the
// bytes of that value.
func Decode(in io.Reader, s Struct, f protocol.Factory, limits protocol.Limits) error {
	return s.Read(f.NewReader(in, limits))
}
