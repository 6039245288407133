package sandbox

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

// SeedFile is the on-disk layout of seed data.
type SeedFile struct {
	Resources map[string][]map[string]any `yaml:"resources"`
}

// ParseSeed decodes YAML seed data. Nil data selects the built-in seed.
func ParseSeed(data []byte) (*SeedFile, error) {
	if data == nil {
		data = defaultSeed
	}
	var f SeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &f, nil
}

// Seed loads the documents of every kind that is still empty. Kinds that
// already hold documents are left alone so restarts keep sandbox edits.
func Seed(ctx context.Context, repo *Repository, f *SeedFile, logger *zap.Logger) (int, error) {
	loaded := 0
	for kind, docs := range f.Resources {
		n, err := repo.Count(ctx, kind)
		if err != nil {
			return loaded, err
		}
		if n > 0 {
			logger.Debug("seed skipped", zap.String("kind", kind), zap.Int("existing", n))
			continue
		}
		for _, raw := range docs {
			doc, err := normalize(raw)
			if err != nil {
				return loaded, fmt.Errorf("seed %s: %w", kind, err)
			}
			if err := repo.Put(ctx, kind, doc); err != nil {
				return loaded, fmt.Errorf("seed %s: %w", kind, err)
			}
			loaded++
		}
	}
	logger.Info("sandbox seeded", zap.Int("documents", loaded))
	return loaded, nil
}

// normalize round-trips a YAML value through JSON so numbers and nested maps
// have their JSON types.
func normalize(raw map[string]any) (Document, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
