package thriftgen

// NamespaceListingBuilder assembles a listing and checks it once in Build.
type NamespaceListingBuilder struct {
	v NamespaceListing
}

func NewNamespaceListingBuilder() *NamespaceListingBuilder {
	return &NamespaceListingBuilder{}
}

func (b *NamespaceListingBuilder) Name(v string) *NamespaceListingBuilder {
	b.v.Name.Set(v)
	return b
}

func (b *NamespaceListingBuilder) IsNamespace(v bool) *NamespaceListingBuilder {
	b.v.IsNamespace.Set(v)
	return b
}

// Build returns a new listing, or the validation error for the first
// required field that was never given.
func (b *NamespaceListingBuilder) Build() (*NamespaceListing, error) {
	out := b.v.DeepCopy()
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}
