// Package catalog serves the provider model list from a LiteLLM-style YAML file.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/davidbz/ttibu/internal/domain"
	"github.com/davidbz/ttibu/internal/observability"
)

// Config locates the catalog file.
type Config struct {
	Path string `env:"CATALOG_PATH" envDefault:"config/litellm.yaml"`
}

// file mirrors the parts of a LiteLLM proxy config the catalog reads.
type file struct {
	ModelList []struct {
		ModelName     string `yaml:"model_name"`
		LiteLLMParams struct {
			Model string `yaml:"model"`
		} `yaml:"litellm_params"`
	} `yaml:"model_list"`
}

type snapshot struct {
	providers  []string
	byProvider map[string][]domain.ModelEntry
	byModel    map[string]string
}

// Catalog implements domain.ModelCatalog.
type Catalog struct {
	path string

	mu   sync.RWMutex
	snap snapshot
}

// Load reads the catalog file at cfg.Path (DI constructor).
func Load(cfg *Config) (*Catalog, error) {
	c := &Catalog{path: cfg.Path}
	if err := c.Reload(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse builds a catalog from YAML bytes.
func Parse(data []byte) (*Catalog, error) {
	snap, err := parse(data)
	if err != nil {
		return nil, err
	}
	return &Catalog{snap: snap}, nil
}

// Reload re-reads the catalog file. The previous list stays in place on failure.
func (c *Catalog) Reload(ctx context.Context) error {
	if c.path == "" {
		return errors.New("catalog path is not configured")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("failed to read catalog %q: %w", c.path, err)
	}

	snap, err := parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse catalog %q: %w", c.path, err)
	}

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()

	observability.FromContext(ctx).Info("model catalog loaded",
		observability.String("path", c.path),
		observability.Int("providers", len(snap.providers)),
		observability.Int("models", len(snap.byModel)))

	return nil
}

func parse(data []byte) (snapshot, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return snapshot{}, err
	}

	snap := snapshot{
		byProvider: make(map[string][]domain.ModelEntry),
		byModel:    make(map[string]string),
	}

	for _, entry := range f.ModelList {
		// "provider/model"; entries without a provider prefix are skipped.
		provider, code, ok := strings.Cut(strings.TrimSpace(entry.LiteLLMParams.Model), "/")
		provider = normalize(provider)
		code = strings.TrimSpace(code)
		if !ok || provider == "" || code == "" {
			continue
		}

		name := strings.TrimSpace(entry.ModelName)
		if name == "" {
			name = code
		}

		if _, seen := snap.byProvider[provider]; !seen {
			snap.providers = append(snap.providers, provider)
		}
		snap.byProvider[provider] = append(snap.byProvider[provider], domain.ModelEntry{Code: code, Name: name})

		// First provider listing a model wins.
		if _, taken := snap.byModel[code]; !taken {
			snap.byModel[code] = provider
		}
	}

	return snap, nil
}

// ModelsFor returns the models of a provider in file order.
func (c *Catalog) ModelsFor(_ context.Context, providerCode string) ([]domain.ModelEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	models, ok := c.snap.byProvider[normalize(providerCode)]
	if !ok {
		return nil, fmt.Errorf("provider %q: %w", providerCode, domain.ErrProviderNotFound)
	}

	out := make([]domain.ModelEntry, len(models))
	copy(out, models)
	return out, nil
}

// ExistsProvider reports whether the catalog lists the provider.
func (c *Catalog) ExistsProvider(_ context.Context, providerCode string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.snap.byProvider[normalize(providerCode)]
	return ok
}

// ResolveModel resolves a bare model code or a "provider/model" reference.
// The returned model code never carries the provider prefix.
func (c *Catalog) ResolveModel(_ context.Context, modelRef string) (string, string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ref := strings.TrimSpace(modelRef)

	if provider, code, ok := strings.Cut(ref, "/"); ok {
		provider = normalize(provider)
		for _, m := range c.snap.byProvider[provider] {
			if m.Code == code {
				return provider, code, nil
			}
		}
	}

	if provider, ok := c.snap.byModel[ref]; ok {
		return provider, ref, nil
	}

	return "", "", fmt.Errorf("model %q: %w", modelRef, domain.ErrModelNotFound)
}

// Providers returns the provider codes in file order.
func (c *Catalog) Providers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.snap.providers))
	copy(out, c.snap.providers)
	return out
}

func normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
