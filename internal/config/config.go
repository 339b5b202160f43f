package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/redeelle/rodrigo-flow-app/internal/analytics"
	"github.com/redeelle/rodrigo-flow-app/internal/store"
)

var (
	ErrMissingLLMKey           = errors.New("missing LLM API key")
	ErrMissingStoreCredentials = errors.New("missing store credentials")
)

// LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

type Config struct {
	Port     int
	LogLevel string

	LLMProvider     string
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	GeminiAPIKey    string
	GeminiModel     string
	LLMTimeout      time.Duration

	StoreDriver        string
	DatabaseURL        string
	FirebaseServiceKey string
	SQLitePath         string
	Collection         string

	Timezone  string
	DraftTTL  time.Duration
	AlertMode string

	NatsURL      string
	NatsToken    string
	SlackToken   string
	SlackChannel string
	ManagerToken string
}

// Load reads configuration from the environment. When SECRETS_FILE names a
// YAML file its top-level keys fill in any variable the environment leaves unset.
func Load() (Config, error) {
	secrets, err := loadSecrets(os.Getenv("SECRETS_FILE"))
	if err != nil {
		return Config{}, err
	}
	src := source{secrets: secrets}

	return Config{
		Port:     src.int("PORT", 8501),
		LogLevel: strings.ToLower(src.str("LOG_LEVEL", "info")),

		LLMProvider:     strings.ToLower(src.str("LLM_PROVIDER", ProviderOpenAI)),
		OpenAIAPIKey:    src.str("OPENAI_API_KEY", ""),
		OpenAIModel:     src.str("OPENAI_MODEL", "gpt-4o"),
		AnthropicAPIKey: src.str("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  src.str("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		GeminiAPIKey:    src.str("GEMINI_API_KEY", ""),
		GeminiModel:     src.str("GEMINI_MODEL", "gemini-2.5-flash"),
		LLMTimeout:      time.Duration(src.int("LLM_TIMEOUT_SECONDS", 120)) * time.Second,

		StoreDriver:        strings.ToLower(src.str("STORE_DRIVER", store.DriverSQLite)),
		DatabaseURL:        src.str("DATABASE_URL", ""),
		FirebaseServiceKey: src.str("FIREBASE_SERVICE_ACCOUNT_KEY", ""),
		SQLitePath:         src.str("SQLITE_PATH", "data/rodrigoflow.db"),
		Collection:         src.str("COLLECTION", store.DefaultCollection),

		Timezone:  src.str("TIMEZONE", "America/Sao_Paulo"),
		DraftTTL:  time.Duration(src.int("DRAFT_TTL_MINUTES", 30)) * time.Minute,
		AlertMode: src.str("ALERT_MODE", string(analytics.AlertOccurrences)),

		NatsURL:      src.str("NATS_URL", ""),
		NatsToken:    src.str("NATS_TOKEN", ""),
		SlackToken:   src.str("SLACK_BOT_TOKEN", ""),
		SlackChannel: src.str("SLACK_ALERTS_CHANNEL", ""),
		ManagerToken: src.str("MANAGER_TOKEN", ""),
	}, nil
}

// Validate reports every problem that must stop startup: an unknown store
// driver or missing store credentials, a bad timezone, alert mode or log level.
func (c Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case store.DriverSQLite:
	case store.DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("%w: DATABASE_URL is required for the postgres store", ErrMissingStoreCredentials))
		}
	case store.DriverFirestore:
		if c.FirebaseServiceKey == "" {
			errs = append(errs, fmt.Errorf("%w: FIREBASE_SERVICE_ACCOUNT_KEY is required for the firestore store", ErrMissingStoreCredentials))
		} else if _, err := store.ProjectID([]byte(c.FirebaseServiceKey)); err != nil {
			errs = append(errs, err)
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := analytics.ParseAlertMode(c.AlertMode); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown LOG_LEVEL %q", c.LogLevel))
	}

	return errors.Join(errs...)
}

// ValidateLLM checks that the selected provider has an API key.
func (c Config) ValidateLLM() error {
	var key, name string
	switch c.LLMProvider {
	case ProviderOpenAI:
		key, name = c.OpenAIAPIKey, "OPENAI_API_KEY"
	case ProviderAnthropic:
		key, name = c.AnthropicAPIKey, "ANTHROPIC_API_KEY"
	case ProviderGemini:
		key, name = c.GeminiAPIKey, "GEMINI_API_KEY"
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: %s is required for provider %s", ErrMissingLLMKey, name, c.LLMProvider)
	}
	return nil
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SlackEnabled reports whether alert digests can be posted.
func (c Config) SlackEnabled() bool {
	return c.SlackToken != "" && c.SlackChannel != ""
}

type source struct {
	secrets map[string]string
}

func (s source) str(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if v := s.secrets[key]; v != "" {
		return v
	}
	return fallback
}

func (s source) int(key string, fallback int) int {
	if v := s.str(key, ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// loadSecrets reads a flat YAML map. Nested mappings, such as a service
// account key written out as YAML, are re-encoded as JSON strings.
func loadSecrets(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read secrets file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse secrets file %s: %w", path, err)
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			out[k] = val
		case map[string]any, []any:
			b, err := json.Marshal(val)
			if err != nil {
				return nil, fmt.Errorf("secrets file key %s: %w", k, err)
			}
			out[k] = string(b)
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out, nil
}
