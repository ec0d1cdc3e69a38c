package thriftgen

import (
	"fmt"

	"github.com/danmuck/nslisting/internal/protocol/schema"
)

// NamespaceListingField is the closed set of NamespaceListing fields. The
// numeric value is the wire field id.
type NamespaceListingField int16

const (
	NamespaceListingFieldName        NamespaceListingField = 1
	NamespaceListingFieldIsNamespace NamespaceListingField = 2
)

func NamespaceListingFields() []NamespaceListingField {
	return []NamespaceListingField{NamespaceListingFieldName, NamespaceListingFieldIsNamespace}
}

func NamespaceListingFieldByID(id int16) (NamespaceListingField, bool) {
	if _, ok := NamespaceListingSchema.FieldByID(id); !ok {
		return 0, false
	}
	return NamespaceListingField(id), true
}

func NamespaceListingFieldByName(name string) (NamespaceListingField, bool) {
	f, ok := NamespaceListingSchema.FieldByName(name)
	if !ok {
		return 0, false
	}
	return NamespaceListingField(f.ID), true
}

func (f NamespaceListingField) ID() int16 { return int16(f) }

// Descriptor returns the schema entry, or false for a value outside the enum.
func (f NamespaceListingField) Descriptor() (schema.Field, bool) {
	return NamespaceListingSchema.FieldByID(int16(f))
}

func (f NamespaceListingField) String() string {
	if d, ok := f.Descriptor(); ok {
		return d.Name
	}
	return fmt.Sprintf("NamespaceListingField(%d)", int16(f))
}
