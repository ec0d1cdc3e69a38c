package schema

import (
	"fmt"

	"github.com/danmuck/nslisting/internal/protocol"
)

// Requirement states whether a field must be present on a valid record.
type Requirement uint8

const (
	Optional Requirement = iota
	Required
)

func (r Requirement) String() string {
	if r == Required {
		return "required"
	}
	return "optional"
}

// Field is the static descriptor of one record field.
type Field struct {
	ID          int16
	Name        string
	Type        protocol.Type
	Requirement Requirement
}

// Header returns the wire header written before the field value.
func (f Field) Header() protocol.FieldHeader {
	return protocol.FieldHeader{Name: f.Name, ID: f.ID, Type: f.Type}
}

func (f Field) IsRequired() bool {
	return f.Requirement == Required
}

// Struct is an immutable field table shared by every instance of a record type.
type Struct struct {
	name   string
	fields []Field
	byID   map[int16]int
	byName map[string]int
}

// NewStruct builds a field table in declaration order. Duplicate ids or names
// and non-positive ids panic: tables are declared once at package init.
func NewStruct(name string, fields ...Field) *Struct {
	s := &Struct{
		name:   name,
		fields: make([]Field, len(fields)),
		byID:   make(map[int16]int, len(fields)),
		byName: make(map[string]int, len(fields)),
	}
	copy(s.fields, fields)
	for i, f := range s.fields {
		if f.ID <= 0 {
			panic(fmt.Sprintf("schema: %s.%s: field id must be positive, got %d", name, f.Name, f.ID))
		}
		if !f.Type.Valid() {
			panic(fmt.Sprintf("schema: %s.%s: invalid wire type %s", name, f.Name, f.Type))
		}
		if _, dup := s.byID[f.ID]; dup {
			panic(fmt.Sprintf("schema: %s: duplicate field id %d", name, f.ID))
		}
		if _, dup := s.byName[f.Name]; dup {
			panic(fmt.Sprintf("schema: %s: duplicate field name %q", name, f.Name))
		}
		s.byID[f.ID] = i
		s.byName[f.Name] = i
	}
	return s
}

func (s *Struct) Name() string { return s.name }

// Header returns the wire header for the struct itself.
func (s *Struct) Header() protocol.StructHeader {
	return protocol.StructHeader{Name: s.name}
}

// Fields returns the descriptors in declaration order.
func (s *Struct) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

func (s *Struct) FieldByID(id int16) (Field, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

func (s *Struct) FieldByName(name string) (Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Required returns the required descriptors in declaration order.
func (s *Struct) Required() []Field {
	out := make([]Field, 0, len(s.fields))
	for _, f := range s.fields {
		if f.IsRequired() {
			out = append(out, f)
		}
	}
	return out
}

// CheckRequired returns a ValidationError for the first required field that
// isSet reports absent.
func (s *Struct) CheckRequired(isSet func(Field) bool) error {
	for _, f := range s.fields {
		if f.IsRequired() && !isSet(f) {
			return &ValidationError{
				Struct:  s.name,
				Field:   f.Name,
				FieldID: f.ID,
				Reason:  ReasonRequiredFieldMissing,
			}
		}
	}
	return nil
}

// CheckDecoded returns a MissingFieldError for the first required field that
// never appeared in a decoded stream.
func (s *Struct) CheckDecoded(isSet func(Field) bool) error {
	for _, f := range s.fields {
		if f.IsRequired() && !isSet(f) {
			return &MissingFieldError{Struct: s.name, Field: f.Name, FieldID: f.ID}
		}
	}
	return nil
}
