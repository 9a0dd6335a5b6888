// Package summary selects the post-answer summarizer.
package summary

import (
	"context"

	"github.com/davidbz/ttibu/internal/domain"
)

// Drivers accepted by Config.Driver.
const (
	DriverAPI    = "api"
	DriverOpenAI = "openai"
	DriverNone   = "none"
)

// Config picks the summarizer backend.
type Config struct {
	Driver string `env:"SUMMARY_DRIVER" envDefault:"api"`
}

// Disabled implements domain.Summarizer without any backend.
// Every answer gets a null summary and no keywords; titles are left unchanged.
type Disabled struct{}

// Summarize returns the empty summary result.
func (Disabled) Summarize(context.Context, string) (*domain.SummaryResult, error) {
	return &domain.SummaryResult{Summary: nil, Keywords: []string{}}, nil
}

// Title returns no title.
func (Disabled) Title(context.Context, string) (string, error) {
	return "", nil
}
