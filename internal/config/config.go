package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the application configuration
type Config struct {
	General struct {
		LogLevel  string `koanf:"log_level"`
		LogPretty bool   `koanf:"log_pretty"`
	} `koanf:"general"`

	AI struct {
		APIKey    string `koanf:"api_key"`
		Model     string `koanf:"model"`
		MaxTokens int    `koanf:"max_tokens"`
		Offline   bool   `koanf:"offline"` // skip the remote client, run on fallbacks only
	} `koanf:"ai"`

	City struct {
		Name      string  `koanf:"name"`
		CenterLat float64 `koanf:"center_lat"`
		CenterLng float64 `koanf:"center_lng"`
	} `koanf:"city"`

	Chat struct {
		ReplyDelayMS int `koanf:"reply_delay_ms"`
	} `koanf:"chat"`

	Dashboard struct {
		Listen string `koanf:"listen"`
	} `koanf:"dashboard"`
}

// Load reads configuration in layers: built-in defaults, then a TOML file,
// then URBANALERT_-prefixed environment variables.
func Load(configPath string) (*Config, error) {
	var k = koanf.New(".")

	k.Load(confmap.Provider(map[string]interface{}{
		"general.log_level":   "info",
		"general.log_pretty":  true,
		"ai.model":            "gemini-2.5-flash",
		"ai.max_tokens":       2048,
		"city.name":           "Salvador",
		"city.center_lat":     -12.9714,
		"city.center_lng":     -38.5014,
		"chat.reply_delay_ms": 800,
		"dashboard.listen":    "127.0.0.1:8787",
	}, "."), nil)

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		defaultPaths := []string{"./urbanalert.toml", "$HOME/.urbanalert.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	k.Load(env.Provider("URBANALERT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "URBANALERT_")), "_", ".", 1)
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// Init writes a commented sample configuration file
func Init(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sample := `# urbanalert configuration

[general]
log_level = "info"
log_pretty = true

[ai]
api_key = "your-gemini-api-key"
model = "gemini-2.5-flash"
max_tokens = 2048
# offline = true runs the assistant on canned fallbacks, no remote calls
offline = false

[city]
name = "Salvador"
center_lat = -12.9714
center_lng = -38.5014

[chat]
reply_delay_ms = 800

[dashboard]
listen = "127.0.0.1:8787"
`

	return os.WriteFile(configPath, []byte(sample), 0644)
}

// Validate checks the configuration for required values
func Validate(cfg *Config) error {
	if !cfg.AI.Offline && cfg.AI.APIKey == "" {
		return fmt.Errorf("ai api_key is required unless ai.offline is set")
	}
	if cfg.City.Name == "" {
		return fmt.Errorf("city name is required")
	}
	if cfg.Chat.ReplyDelayMS < 0 {
		return fmt.Errorf("chat reply_delay_ms must not be negative")
	}
	return nil
}
