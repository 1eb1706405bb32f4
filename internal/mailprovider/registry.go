package mailprovider

// Registry maps provider names to adapters. Unknown names are coerced to
// the default provider instead of being rejected, matching the public API
// contract for the email_provider request field.
type Registry struct {
	providers   map[string]Provider
	defaultName string
}

func NewRegistry(defaultProvider Provider, others ...Provider) *Registry {
	r := &Registry{
		providers:   map[string]Provider{defaultProvider.Name(): defaultProvider},
		defaultName: defaultProvider.Name(),
	}
	for _, p := range others {
		r.providers[p.Name()] = p
	}
	return r
}

// Resolve returns the adapter for name, falling back to the default
// provider when name is empty or unknown.
func (r *Registry) Resolve(name string) Provider {
	if p, ok := r.providers[name]; ok {
		return p
	}
	return r.providers[r.defaultName]
}

func (r *Registry) DefaultName() string {
	return r.defaultName
}
