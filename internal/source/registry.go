package source

import (
	"sort"

	"github.com/omarwh/finsent/internal/logger"
)

// Registry holds named source adapters. Candidates are validated once
// and then served from memory.
type Registry struct {
	sources map[string]Source
	log     *logger.Logger
}

// NewRegistry validates candidate adapters and builds a registry.
// Candidates with an empty name are skipped with a warning. When two
// candidates report the same name, the later one wins.
// Parameters:
//   - log: structured logger for validation warnings.
//   - candidates: adapters to register, in registration order.
// Returns:
//   - *Registry: registry over the valid candidates.
func NewRegistry(log *logger.Logger, candidates ...Source) *Registry {
	sources := make(map[string]Source, len(candidates))
	for _, candidate := range candidates {
		name := candidate.Name()
		if name == "" {
			log.Warn("Skipping source adapter with empty name")
			continue
		}
		if _, exists := sources[name]; exists {
			log.WithField(logger.FieldSource, name).
				Warn("Duplicate source name, overwriting earlier registration")
		}
		sources[name] = candidate
	}
	return &Registry{sources: sources, log: log}
}

// Names returns the sorted names of all registered sources.
// Parameters: none.
// Returns:
//   - []string: registered source names in ascending order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered source in name order.
// Parameters: none.
// Returns:
//   - []Source: all registered adapters.
func (r *Registry) All() []Source {
	names := r.Names()
	out := make([]Source, 0, len(names))
	for _, name := range names {
		out = append(out, r.sources[name])
	}
	return out
}

// Resolve maps requested names to registered sources. Unknown names are
// dropped with a warning rather than failing the whole request. A nil
// name list selects every registered source.
// Parameters:
//   - names: requested source names, or nil for all.
// Returns:
//   - []Source: matching adapters, possibly empty.
func (r *Registry) Resolve(names []string) []Source {
	if names == nil {
		return r.All()
	}
	out := make([]Source, 0, len(names))
	for _, name := range names {
		src, ok := r.sources[name]
		if !ok {
			r.log.WithField(logger.FieldSource, name).
				Warn("Requested source not found, skipping")
			continue
		}
		out = append(out, src)
	}
	return out
}
