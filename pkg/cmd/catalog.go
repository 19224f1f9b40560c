// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/kanvas-io/kanvas/pkg/catalog"
)

// NewCatalog builds the node spec catalog with every built-in spec registered
// and marked ready.
func NewCatalog(logger *slog.Logger) *catalog.Catalog {
	cat, err := catalog.NewDefault(logger)
	if err != nil {
		panic(err)
	}

	return cat
}
