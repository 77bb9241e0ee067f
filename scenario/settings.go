package scenario

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Model providers understood by Settings.Provider.
const (
	ProviderNone      = "none"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Settings carries process level configuration read from the environment.
type Settings struct {
	ScenarioFile    string        // HAUNT_SCENARIO, empty = built-in
	Provider        string        // HAUNT_MODEL_PROVIDER: none, anthropic, openai
	Model           string        // HAUNT_MODEL, provider default when empty
	APIKey          string        // ANTHROPIC_API_KEY or OPENAI_API_KEY depending on provider
	Rounds          int           // HAUNT_ROUNDS
	MaxDecisions    int           // HAUNT_MAX_DECISIONS, 0 = unlimited
	DecisionTimeout time.Duration // HAUNT_DECISION_TIMEOUT
	Interval        time.Duration // HAUNT_ROUND_INTERVAL
	ListenAddr      string        // HAUNT_LISTEN_ADDR, empty disables the stream server
	LogLevel        string        // HAUNT_LOG_LEVEL
	LogFormat       string        // HAUNT_LOG_FORMAT: json or text
	TraceConsole    bool          // HAUNT_TRACE_CONSOLE
}

// DefaultSettings returns the settings used when no variables are set.
func DefaultSettings() Settings {
	return Settings{
		Provider:        ProviderNone,
		Rounds:          6,
		DecisionTimeout: 90 * time.Second,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// LoadSettings reads Settings from the environment using getenv (os.Getenv when nil).
func LoadSettings(getenv func(string) string) (Settings, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	s := DefaultSettings()

	s.ScenarioFile = getenv("HAUNT_SCENARIO")
	if v := getenv("HAUNT_MODEL_PROVIDER"); v != "" {
		s.Provider = v
	}
	s.Model = getenv("HAUNT_MODEL")
	s.ListenAddr = getenv("HAUNT_LISTEN_ADDR")
	if v := getenv("HAUNT_LOG_LEVEL"); v != "" {
		s.LogLevel = v
	}
	if v := getenv("HAUNT_LOG_FORMAT"); v != "" {
		s.LogFormat = v
	}

	switch s.Provider {
	case ProviderNone:
	case ProviderAnthropic:
		s.APIKey = getenv("ANTHROPIC_API_KEY")
	case ProviderOpenAI:
		s.APIKey = getenv("OPENAI_API_KEY")
	default:
		return s, fmt.Errorf("HAUNT_MODEL_PROVIDER: unknown provider %q", s.Provider)
	}
	if s.Provider != ProviderNone && s.APIKey == "" {
		return s, fmt.Errorf("%s provider selected but no API key is set", s.Provider)
	}

	var err error
	if s.Rounds, err = intVar(getenv, "HAUNT_ROUNDS", s.Rounds); err != nil {
		return s, err
	}
	if s.MaxDecisions, err = intVar(getenv, "HAUNT_MAX_DECISIONS", s.MaxDecisions); err != nil {
		return s, err
	}
	if s.DecisionTimeout, err = durationVar(getenv, "HAUNT_DECISION_TIMEOUT", s.DecisionTimeout); err != nil {
		return s, err
	}
	if s.Interval, err = durationVar(getenv, "HAUNT_ROUND_INTERVAL", s.Interval); err != nil {
		return s, err
	}
	if v := getenv("HAUNT_TRACE_CONSOLE"); v != "" {
		if s.TraceConsole, err = strconv.ParseBool(v); err != nil {
			return s, fmt.Errorf("HAUNT_TRACE_CONSOLE: %w", err)
		}
	}

	return s, nil
}

func intVar(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	if n < 0 {
		return def, fmt.Errorf("%s: must not be negative", key)
	}
	return n, nil
}

func durationVar(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
