package authschema

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed catalog.toml
var defaultCatalog []byte

type catalogFile struct {
	Schemas []Schema `toml:"schema"`
}

// Parse decodes a TOML catalog document.
func Parse(raw []byte) ([]Schema, error) {
	var f catalogFile
	md, err := toml.Decode(string(raw), &f)
	if err != nil {
		return nil, fmt.Errorf("decode schema catalog: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("decode schema catalog: unknown keys %v", undecoded)
	}
	return f.Schemas, nil
}

// Definitions returns the catalog definitions from path, or the embedded
// catalog when path is empty.
func Definitions(path string) ([]Schema, error) {
	raw := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read schema catalog: %w", err)
		}
		raw = b
	}
	return Parse(raw)
}

// LoadDefault builds the catalog shipped with the binary.
func LoadDefault() (*Catalog, error) {
	defs, err := Parse(defaultCatalog)
	if err != nil {
		return nil, err
	}
	return NewCatalog(defs)
}

// Bootstrap loads the catalog from the document store. An empty store is seeded
// with seed first, so every instance of a deployment reads the same definitions.
func Bootstrap(ctx context.Context, store Store, seed []Schema, logger *slog.Logger) (*Catalog, error) {
	defs, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	if len(defs) == 0 {
		// validate before seeding so a broken file never reaches the store
		if _, err := NewCatalog(seed); err != nil {
			return nil, err
		}
		for i := range seed {
			if err := store.Upsert(ctx, &seed[i]); err != nil {
				return nil, fmt.Errorf("seed schema %s: %w", seed[i].Code, err)
			}
		}
		if logger != nil {
			logger.InfoContext(ctx, "seeded schema catalog", "schemas", len(seed))
		}
		defs = seed
	}
	return NewCatalog(defs)
}
