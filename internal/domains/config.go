package domains

import (
	"errors"
	"fmt"
	"sort"
)

const (
	// GlobalNamespace is shared by every domain.
	GlobalNamespace = "lucy_global"
	// SystemNamespace holds error-learning snapshots.
	SystemNamespace = "lucy_system"
)

// Behavior carries the generation parameters a responder runs with.
type Behavior struct {
	Temperature float64
	MaxTokens   int
	Model       string
}

// Learning toggles what a responder records back into memory.
type Learning struct {
	FromCorrections    bool
	SuccessfulPatterns bool
	CrossDomain        bool
}

// Config describes one domain.
type Config struct {
	Domain              Domain
	Name                string
	Description         string
	Collections         []string
	KnowledgeCategories []string
	Tools               []string
	Actions             []string
	Namespace           string
	MemoryCategories    []string
	Behavior            Behavior
	Learning            Learning
}

// Validate checks the completeness of a single record.
func (c Config) Validate() error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if c.Namespace == "" {
		errs = append(errs, errors.New("memory namespace is required"))
	}
	if len(c.Collections) == 0 {
		errs = append(errs, errors.New("at least one collection is required"))
	}
	if len(c.Tools) == 0 {
		errs = append(errs, errors.New("at least one tool is required"))
	}
	if len(c.Actions) == 0 {
		errs = append(errs, errors.New("at least one action is required"))
	}
	if len(c.MemoryCategories) == 0 {
		errs = append(errs, errors.New("at least one memory category is required"))
	}
	if c.Behavior.Temperature < 0 || c.Behavior.Temperature > 1 {
		errs = append(errs, fmt.Errorf("temperature %.2f outside [0,1]", c.Behavior.Temperature))
	}
	if c.Behavior.MaxTokens <= 0 {
		errs = append(errs, errors.New("max tokens must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("domain %s: %w", c.Domain, err)
	}
	return nil
}

// Registry is the immutable set of domain records.
type Registry struct {
	configs map[Domain]Config
}

// NewRegistry validates every record and the registry as a whole: all
// routable domains plus the orchestrator must be present and namespaces must
// not collide.
func NewRegistry(configs ...Config) (*Registry, error) {
	r := &Registry{configs: make(map[Domain]Config, len(configs))}
	namespaces := make(map[string]Domain, len(configs))
	var errs []error
	for _, c := range configs {
		if _, dup := r.configs[c.Domain]; dup {
			errs = append(errs, fmt.Errorf("domain %s configured twice", c.Domain))
			continue
		}
		if err := c.Validate(); err != nil {
			errs = append(errs, err)
		}
		if owner, taken := namespaces[c.Namespace]; taken && c.Namespace != "" {
			errs = append(errs, fmt.Errorf("namespace %s shared by %s and %s", c.Namespace, owner, c.Domain))
		}
		namespaces[c.Namespace] = c.Domain
		r.configs[c.Domain] = c
	}
	for _, d := range append(append([]Domain{}, Routable...), Orchestrator) {
		if _, ok := r.configs[d]; !ok {
			errs = append(errs, fmt.Errorf("domain %s is not configured", d))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid domain configuration: %w", err)
	}
	return r, nil
}

func (r *Registry) Get(d Domain) (Config, bool) {
	c, ok := r.configs[d]
	return c, ok
}

// Namespace returns the memory namespace of d, or the global namespace for
// domains without a record.
func (r *Registry) Namespace(d Domain) string {
	if c, ok := r.configs[d]; ok {
		return c.Namespace
	}
	return GlobalNamespace
}

// Namespaces returns every configured namespace plus the global and system
// namespaces, sorted.
func (r *Registry) Namespaces() []string {
	out := []string{GlobalNamespace, SystemNamespace}
	for _, c := range r.configs {
		out = append(out, c.Namespace)
	}
	sort.Strings(out)
	return out
}

// All returns records in a stable order.
func (r *Registry) All() []Config {
	out := make([]Config, 0, len(r.configs))
	for _, c := range r.configs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out
}
