package upstream

import "time"

// Config contains upstream transport settings.
//   - RelayBaseURL/RelayMasterKey: the unified relay used in relay mode
//   - Temperature: sampling temperature of chat calls (credential tests always use 0)
//   - AnthropicMaxTokens: max_tokens sent on Anthropic chat calls
//   - HeaderTimeout: how long to wait for response headers; streaming bodies are bounded by ctx only
//   - TestTimeout: overall deadline of a credential test
type Config struct {
	RelayBaseURL       string        `env:"RELAY_BASE_URL"            envDefault:"http://localhost:4000"`
	RelayMasterKey     string        `env:"RELAY_MASTER_KEY"`
	Temperature        float64       `env:"UPSTREAM_TEMPERATURE"      envDefault:"0.7"`
	AnthropicMaxTokens int           `env:"ANTHROPIC_MAX_TOKENS"      envDefault:"1024"`
	AnthropicVersion   string        `env:"ANTHROPIC_VERSION"         envDefault:"2023-06-01"`
	HeaderTimeout      time.Duration `env:"UPSTREAM_HEADER_TIMEOUT"   envDefault:"60s"`
	TestTimeout        time.Duration `env:"UPSTREAM_TEST_TIMEOUT"     envDefault:"15s"`
	ErrorBodyLimit     int64         `env:"UPSTREAM_ERROR_BODY_LIMIT" envDefault:"2048"`
}
