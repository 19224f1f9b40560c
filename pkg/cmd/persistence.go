package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kanvas-io/kanvas/pkg/persistence"
	"github.com/kanvas-io/kanvas/pkg/persistence/file"
	"github.com/kanvas-io/kanvas/pkg/persistence/postgresql"
	"github.com/kanvas-io/kanvas/pkg/persistence/redis"
)

var supportedPersistenceProviders = []string{"file", "postgres", "postgresql", "redis"}

// NewPersistence creates the persistence backend named by the database URL
// scheme. Unknown schemes fall back to file storage.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(err)
		}

		return p
	case "redis":
		p, err := redis.NewPersistence(databaseURL)
		if err != nil {
			panic(err)
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, _ := strings.Cut(databaseURL, "://")

	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
