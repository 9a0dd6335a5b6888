package stream

import "github.com/davidbz/ttibu/internal/domain"

// Normalizer exposes the package functions as a domain.StreamNormalizer.
type Normalizer struct{}

// NewNormalizer creates a new normalizer (DI constructor).
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// ExtractDelta implements domain.StreamNormalizer.
func (Normalizer) ExtractDelta(family domain.ProviderFamily, chunk string) (string, bool) {
	return ExtractDelta(family, chunk)
}

// IsDone implements domain.StreamNormalizer.
func (Normalizer) IsDone(family domain.ProviderFamily, chunk string) bool {
	return IsDone(family, chunk)
}

// ExtractUsage implements domain.StreamNormalizer.
func (Normalizer) ExtractUsage(family domain.ProviderFamily, chunk string) (domain.Usage, bool) {
	return ExtractUsage(family, chunk)
}
