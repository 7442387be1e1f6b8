package conf

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	z "github.com/Oudwins/zog"

	"github.com/Roughriver74/west-rashod-sub001/internals/version"
)

type Config struct {
	Version   string          `json:"-"`
	API       APIConfig       `json:"api" zog:"api"`
	Tracking  TrackingConfig  `json:"tracking"`
	Dashboard DashboardConfig `json:"dashboard"`
	Client    ClientConfig    `json:"client"`
}

type APIConfig struct {
	BaseURL string `json:"base_url" zog:"base_url"`
	// WSScheme is the scheme used when the API base URL is rewritten for the
	// push transport ("ws" or "wss").
	WSScheme string `json:"ws_scheme" zog:"ws_scheme"`
}

type TrackingConfig struct {
	PollInterval    string `json:"poll_interval" zog:"poll_interval"`
	PushBaseDelay   string `json:"push_base_delay" zog:"push_base_delay"`
	PushMaxAttempts int    `json:"push_max_attempts" zog:"push_max_attempts"`
	UseWebSocket    bool   `json:"use_websocket" zog:"use_websocket"`
}

type DashboardConfig struct {
	URL string `json:"url" zog:"url"`
}

type ClientConfig struct {
	DataDir string `json:"data_dir" zog:"data_dir"`
}

var apiSchema = z.Struct(z.Shape{
	"BaseURL":  z.String().Default("http://localhost:8000").Trim().Transform(trimSlashTransform),
	"WSScheme": z.String().Default("ws").OneOf([]string{"ws", "wss"}),
})

var trackingSchema = z.Struct(z.Shape{
	"PollInterval":    z.String().Default("3s").TestFunc(isDurationTest, z.Message("not a valid duration")),
	"PushBaseDelay":   z.String().Default("1s").TestFunc(isDurationTest, z.Message("not a valid duration")),
	"PushMaxAttempts": z.Int().Default(5).GTE(0),
	"UseWebSocket":    z.Bool().Default(true),
})

var dashboardSchema = z.Struct(z.Shape{
	"URL": z.String().Optional().Trim().Transform(trimSlashTransform),
})

var clientSchema = z.Struct(z.Shape{
	"DataDir": z.String().Default("~/.westctl").Transform(expandPathTransform),
})

var ConfigSchema = z.Struct(z.Shape{
	"API":       apiSchema,
	"tracking":  trackingSchema,
	"dashboard": dashboardSchema,
	"client":    clientSchema,
})

var config *Config

func GetConfig() *Config {
	if config == nil {
		defaults := &Config{}
		if err := ConfigSchema.Parse(map[string]any{}, defaults); err != nil {
			log.Fatal("[westctl] Failed to parse config defaults", err)
		}
		defaults.Version = version.Version()

		configPath := filepath.Join(filepath.Clean(defaults.Client.DataDir), "westctl.json")
		data, err := os.ReadFile(configPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				config = defaults
				return config
			}
			log.Fatal("[westctl] Failed to read config file", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			config = defaults
			return config
		}

		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			log.Fatal("[westctl] Failed to parse config file", err)
		}
		parsed := &Config{}
		if err := ConfigSchema.Parse(payload, parsed); err != nil {
			log.Fatal("[westctl] Failed to parse config", err)
		}
		parsed.Version = defaults.Version
		config = parsed
	}

	return config
}

func (t TrackingConfig) PollEvery() time.Duration {
	return parseDurationOr(t.PollInterval, 3*time.Second)
}

func (t TrackingConfig) PushDelay() time.Duration {
	return parseDurationOr(t.PushBaseDelay, time.Second)
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func isDurationTest(valPtr *string, ctx z.Ctx) bool {
	_, err := time.ParseDuration(*valPtr)
	return err == nil
}

func trimSlashTransform(ptr *string, c z.Ctx) error {
	*ptr = strings.TrimRight(*ptr, "/")
	return nil
}

func expandPathTransform(ptr *string, c z.Ctx) error {
	expanded, err := expandPath(*ptr)
	*ptr = expanded
	return err
}

func expandPath(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
	}
	return path, nil
}
