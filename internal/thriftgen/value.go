package thriftgen

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/danmuck/nslisting/internal/record"
)

// DeepCopy returns an independent copy, presence included.
func (p *NamespaceListing) DeepCopy() *NamespaceListing {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// Clear resets every field to absent.
func (p *NamespaceListing) Clear() {
	p.Name.Unset()
	p.IsNamespace.Unset()
}

func (p *NamespaceListing) Equal(other *NamespaceListing) bool {
	if p == other {
		return true
	}
	if p == nil || other == nil {
		return false
	}
	return record.EqualOptional(p.Name, other.Name) &&
		record.EqualOptional(p.IsNamespace, other.IsNamespace)
}

// Compare orders by name then is_namespace. For each field an absent value
// sorts before a present one. A nil listing sorts first.
func (p *NamespaceListing) Compare(other *NamespaceListing) int {
	switch {
	case p == other:
		return 0
	case p == nil:
		return -1
	case other == nil:
		return 1
	}
	if c := record.CompareOptional(p.Name, other.Name); c != 0 {
		return c
	}
	return record.CompareOptionalBool(p.IsNamespace, other.IsNamespace)
}

// Hash covers presence and value of every field. Equal listings hash equal.
func (p *NamespaceListing) Hash() uint64 {
	h := record.NewHasher()
	if p == nil {
		return h.Sum64()
	}
	h.Field(NamespaceListingFieldName.ID(), p.Name.IsSet())
	if v, ok := p.Name.Get(); ok {
		h.String(v)
	}
	h.Field(NamespaceListingFieldIsNamespace.ID(), p.IsNamespace.IsSet())
	if v, ok := p.IsNamespace.Get(); ok {
		h.Bool(v)
	}
	return h.Sum64()
}

const unsetText = "<unset>"

func (p *NamespaceListing) String() string {
	if p == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("NamespaceListing(name:")
	if v, ok := p.Name.Get(); ok {
		b.WriteString(v)
	} else {
		b.WriteString(unsetText)
	}
	b.WriteString(", is_namespace:")
	if v, ok := p.IsNamespace.Get(); ok {
		b.WriteString(strconv.FormatBool(v))
	} else {
		b.WriteString(unsetText)
	}
	b.WriteByte(')')
	return b.String()
}

type namespaceListingJSON struct {
	Name        *string `json:"name,omitempty"`
	IsNamespace *bool   `json:"is_namespace,omitempty"`
}

// MarshalJSON emits only present fields.
func (p *NamespaceListing) MarshalJSON() ([]byte, error) {
	var out namespaceListingJSON
	if v, ok := p.Name.Get(); ok {
		out.Name = &v
	}
	if v, ok := p.IsNamespace.Get(); ok {
		out.IsNamespace = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON replaces p. It does not validate; callers that need a
// complete listing call Validate.
func (p *NamespaceListing) UnmarshalJSON(data []byte) error {
	var in namespaceListingJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	p.Clear()
	if in.Name != nil {
		p.Name.Set(*in.Name)
	}
	if in.IsNamespace != nil {
		p.IsNamespace.Set(*in.IsNamespace)
	}
	return nil
}
