package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/davidbz/ttibu/internal/domain"
)

// Config contains the direct-provider base endpoints.
type Config struct {
	OpenAIBaseURL    string `env:"OPENAI_BASE_URL"    envDefault:"https://api.openai.com"`
	AnthropicBaseURL string `env:"ANTHROPIC_BASE_URL" envDefault:"https://api.anthropic.com"`
	GeminiBaseURL    string `env:"GEMINI_BASE_URL"    envDefault:"https://generativelanguage.googleapis.com"`
}

// Registry implements the ProviderRegistry interface.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]domain.ProviderDescriptor
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		mu:          sync.RWMutex{},
		descriptors: make(map[string]domain.ProviderDescriptor),
	}
}

// NewDefaultRegistry creates a registry holding every supported provider code.
func NewDefaultRegistry(cfg *Config) (*Registry, error) {
	r := NewRegistry()
	for _, d := range DefaultDescriptors(cfg) {
		if err := r.Register(context.Background(), d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultDescriptors lists the static descriptors of the supported provider codes.
func DefaultDescriptors(cfg *Config) []domain.ProviderDescriptor {
	openai := domain.ProviderDescriptor{Family: domain.FamilyOpenAI, BaseURL: cfg.OpenAIBaseURL, Auth: domain.AuthBearer}
	anthropic := domain.ProviderDescriptor{Family: domain.FamilyAnthropic, BaseURL: cfg.AnthropicBaseURL, Auth: domain.AuthHeaderKey}
	gemini := domain.ProviderDescriptor{Family: domain.FamilyGemini, BaseURL: cfg.GeminiBaseURL, Auth: domain.AuthQueryKey}

	codes := []struct {
		code string
		base domain.ProviderDescriptor
	}{
		{"openai", openai},
		{"litellm", openai},
		{"anthropic", anthropic},
		{"claude", anthropic},
		{"gemini", gemini},
		{"google", gemini},
	}

	out := make([]domain.ProviderDescriptor, 0, len(codes))
	for _, c := range codes {
		d := c.base
		d.Code = c.code
		out = append(out, d)
	}
	return out
}

// Register adds a descriptor to the registry.
func (r *Registry) Register(_ context.Context, descriptor domain.ProviderDescriptor) error {
	code := normalize(descriptor.Code)
	if code == "" {
		return errors.New("provider code cannot be empty")
	}
	if descriptor.Family.String() == "unknown" {
		return fmt.Errorf("provider %s has no family", code)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[code]; exists {
		return fmt.Errorf("provider %s already registered", code)
	}

	descriptor.Code = code
	r.descriptors[code] = descriptor

	return nil
}

// Get retrieves a descriptor by provider code, case-insensitively.
func (r *Registry) Get(_ context.Context, providerCode string) (domain.ProviderDescriptor, error) {
	code := normalize(providerCode)
	if code == "" {
		return domain.ProviderDescriptor{}, fmt.Errorf("empty provider code: %w", domain.ErrProviderNotFound)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptor, exists := r.descriptors[code]
	if !exists {
		return domain.ProviderDescriptor{}, fmt.Errorf("provider %s: %w", code, domain.ErrProviderNotFound)
	}

	return descriptor, nil
}

// List returns all registered provider codes in sorted order.
func (r *Registry) List(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make([]string, 0, len(r.descriptors))
	for code := range r.descriptors {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	return codes, nil
}

func normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
