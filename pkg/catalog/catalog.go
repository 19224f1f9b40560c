// Package catalog holds the immutable node-type specifications the builder
// consumes. Specs are registered once at startup; the graph core only ever
// reads them.
package catalog

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/kanvas-io/kanvas/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// Catalog is the node specification provider. Drag-and-drop, connection
// validation, and type rendering block until Ready reports true.
type Catalog struct {
	logger  *slog.Logger
	mu      sync.RWMutex
	specs   map[string]*models.NodeSpec
	schemas map[string]*gojsonschema.Schema
	ready   bool
}

func NewCatalog(logger *slog.Logger) *Catalog {
	return &Catalog{
		logger:  logger,
		specs:   make(map[string]*models.NodeSpec),
		schemas: make(map[string]*gojsonschema.Schema),
	}
}

// Register adds a spec under its type name. A spec carrying a ConfigSchema is
// compiled at registration so malformed schemas surface at startup rather
// than on first use.
func (c *Catalog) Register(spec *models.NodeSpec) error {
	if spec == nil || spec.Name == "" {
		return fmt.Errorf("node spec must carry a name")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.specs[spec.Name]; exists {
		return fmt.Errorf("node spec %q already registered", spec.Name)
	}

	if err := checkHandleNames(spec); err != nil {
		return fmt.Errorf("node spec %q: %w", spec.Name, err)
	}

	if spec.ConfigSchema != nil {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(spec.ConfigSchema))
		if err != nil {
			return fmt.Errorf("invalid config schema for node spec %q: %w", spec.Name, err)
		}

		c.schemas[spec.Name] = schema
	}

	c.specs[spec.Name] = spec

	return nil
}

// checkHandleNames rejects specs whose wire handle ids would collide. Handle
// ids are positional, but duplicate field names would make the rendered
// handles indistinguishable.
func checkHandleNames(spec *models.NodeSpec) error {
	seen := make(map[string]struct{}, len(spec.Inputs))
	for _, ref := range spec.InputHandles() {
		if _, dup := seen[ref.Name]; dup {
			return fmt.Errorf("duplicate input handle %q", ref.Name)
		}

		seen[ref.Name] = struct{}{}
	}

	seen = make(map[string]struct{}, len(spec.Outputs))
	for _, ref := range spec.OutputHandles() {
		if _, dup := seen[ref.Name]; dup {
			return fmt.Errorf("duplicate output handle %q", ref.Name)
		}

		seen[ref.Name] = struct{}{}
	}

	return nil
}

// MarkReady flips the catalog into its loaded state.
func (c *Catalog) MarkReady() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = true
}

// Ready reports whether the full spec set has been loaded.
func (c *Catalog) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.ready
}

// ByType returns the spec registered under the given type name.
func (c *Catalog) ByType(typeName string) (*models.NodeSpec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	spec, ok := c.specs[typeName]

	return spec, ok
}

// All returns every registered spec, sorted by name for stable listings.
func (c *Catalog) All() []*models.NodeSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()

	specs := make([]*models.NodeSpec, 0, len(c.specs))
	for _, spec := range c.specs {
		specs = append(specs, spec)
	}

	sort.Slice(specs, func(i, j int) bool {
		return specs[i].Name < specs[j].Name
	})

	return specs
}

// Lookup adapts the catalog to the spec-lookup function the connection
// validator and graph store take.
func (c *Catalog) Lookup() func(typeName string) (*models.NodeSpec, bool) {
	return c.ByType
}

// ValidateConfig checks a parameter payload against the spec's JSON Schema.
// Specs without a schema accept any payload.
func (c *Catalog) ValidateConfig(typeName string, config map[string]any) error {
	c.mu.RLock()
	schema, ok := c.schemas[typeName]
	c.mu.RUnlock()

	if !ok {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("config validation for %q: %w", typeName, err)
	}

	if !result.Valid() {
		errs := result.Errors()
		c.logger.Warn("node config rejected by schema", "type", typeName, "violations", len(errs))

		return fmt.Errorf("config for %q violates schema: %s", typeName, errs[0].String())
	}

	return nil
}
