package sitemap

import "context"

// Registry tracks which locations a run has already emitted. The first claim
// of a location wins; later claims are rejected.
type Registry interface {
	Claim(ctx context.Context, locs []string) ([]bool, error)
	Release(ctx context.Context) error
}

// RegistryFactory opens a registry scoped to one run.
type RegistryFactory func(runID string) Registry

type localRegistry map[string]struct{}

// NewLocalRegistry is an in-process Registry. It is the default for on-demand
// renders, which never share state across requests.
func NewLocalRegistry(string) Registry {
	return localRegistry{}
}

func (r localRegistry) Claim(_ context.Context, locs []string) ([]bool, error) {
	claimed := make([]bool, len(locs))
	for i, loc := range locs {
		if _, ok := r[loc]; ok {
			continue
		}
		r[loc] = struct{}{}
		claimed[i] = true
	}
	return claimed, nil
}

func (r localRegistry) Release(context.Context) error {
	clear(r)
	return nil
}
