package thriftgen

import (
	"fmt"

	"github.com/danmuck/nslisting/internal/protocol"
	"github.com/danmuck/nslisting/internal/protocol/schema"
	"github.com/danmuck/nslisting/internal/record"
)

var NamespaceListingSchema = schema.NewStruct("NamespaceListing",
	schema.Field{ID: 1, Name: "name", Type: protocol.TypeString, Requirement: schema.Required},
	schema.Field{ID: 2, Name: "is_namespace", Type: protocol.TypeBool, Requirement: schema.Required},
)

// NamespaceListing is one child of a namespace. The zero value has no fields set.
type NamespaceListing struct {
	Name        record.Optional[string]
	IsNamespace record.Optional[bool]
}

var _ record.Struct = (*NamespaceListing)(nil)

// NewNamespaceListing returns a listing with both required fields set.
func NewNamespaceListing(name string, isNamespace bool) *NamespaceListing {
	return &NamespaceListing{
		Name:        record.Some(name),
		IsNamespace: record.Some(isNamespace),
	}
}

func (p *NamespaceListing) GetName() string {
	return p.Name.Value()
}

func (p *NamespaceListing) SetName(v string) {
	p.Name.Set(v)
}

func (p *NamespaceListing) IsSetName() bool {
	return p.Name.IsSet()
}

func (p *NamespaceListing) GetIsNamespace() bool {
	return p.IsNamespace.Value()
}

func (p *NamespaceListing) SetIsNamespace(v bool) {
	p.IsNamespace.Set(v)
}

func (p *NamespaceListing) IsSetIsNamespace() bool {
	return p.IsNamespace.IsSet()
}

// IsSet reports presence of f. Fields outside the enum are never set.
func (p *NamespaceListing) IsSet(f NamespaceListingField) bool {
	switch f {
	case NamespaceListingFieldName:
		return p.Name.IsSet()
	case NamespaceListingFieldIsNamespace:
		return p.IsNamespace.IsSet()
	}
	return false
}

func (p *NamespaceListing) Unset(f NamespaceListingField) {
	switch f {
	case NamespaceListingFieldName:
		p.Name.Unset()
	case NamespaceListingFieldIsNamespace:
		p.IsNamespace.Unset()
	}
}

// FieldValue returns the value of f, or nil and false when f is not set.
func (p *NamespaceListing) FieldValue(f NamespaceListingField) (any, bool) {
	switch f {
	case NamespaceListingFieldName:
		if v, ok := p.Name.Get(); ok {
			return v, true
		}
	case NamespaceListingFieldIsNamespace:
		if v, ok := p.IsNamespace.Get(); ok {
			return v, true
		}
	}
	return nil, false
}

// SetFieldValue assigns v to f. A nil v unsets the field.
func (p *NamespaceListing) SetFieldValue(f NamespaceListingField, v any) error {
	if _, ok := f.Descriptor(); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownField, int16(f))
	}
	if v == nil {
		p.Unset(f)
		return nil
	}
	switch f {
	case NamespaceListingFieldName:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: %s wants string, got %T", ErrFieldValueType, f, v)
		}
		p.Name.Set(s)
	case NamespaceListingFieldIsNamespace:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("%w: %s wants bool, got %T", ErrFieldValueType, f, v)
		}
		p.IsNamespace.Set(b)
	}
	return nil
}

func (p *NamespaceListing) isSetDescriptor(f schema.Field) bool {
	return p.IsSet(NamespaceListingField(f.ID))
}

// Validate reports the first required field that is not set.
func (p *NamespaceListing) Validate() error {
	return NamespaceListingSchema.CheckRequired(p.isSetDescriptor)
}

// Read replaces p with the next struct value from r. Unknown fields and
// fields with an unexpected wire type are skipped.
func (p *NamespaceListing) Read(r protocol.Reader) error {
	p.Clear()
	err := record.ReadStruct(r, NamespaceListingSchema, func(f schema.Field) error {
		switch NamespaceListingField(f.ID) {
		case NamespaceListingFieldName:
			v, err := r.ReadString()
			if err != nil {
				return fmt.Errorf("read field %s: %w", f.Name, err)
			}
			p.Name.Set(v)
		case NamespaceListingFieldIsNamespace:
			v, err := r.ReadBool()
			if err != nil {
				return fmt.Errorf("read field %s: %w", f.Name, err)
			}
			p.IsNamespace.Set(v)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("NamespaceListing: %w", err)
	}
	if err := NamespaceListingSchema.CheckDecoded(p.isSetDescriptor); err != nil {
		return err
	}
	return p.Validate()
}

// Write validates p and then encodes it. p is not modified.
func (p *NamespaceListing) Write(w protocol.Writer) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return record.WriteStruct(w, NamespaceListingSchema, func() error {
		for _, f := range NamespaceListingSchema.Fields() {
			if !p.isSetDescriptor(f) {
				continue
			}
			if err := record.WriteField(w, f, func() error { return p.writeValue(w, f) }); err != nil {
				return fmt.Errorf("NamespaceListing: write field %s: %w", f.Name, err)
			}
		}
		return nil
	})
}

func (p *NamespaceListing) writeValue(w protocol.Writer, f schema.Field) error {
	switch NamespaceListingField(f.ID) {
	case NamespaceListingFieldName:
		return w.WriteString(p.Name.Value())
	case NamespaceListingFieldIsNamespace:
		return w.WriteBool(p.IsNamespace.Value())
	}
	return fmt.Errorf("%w: %d", ErrUnknownField, f.ID)
}
