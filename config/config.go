package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ErrConfiguration marks problems that must stop a run before any work starts.
var ErrConfiguration = errors.New("configuration error")

// APIKeyEnv overrides llm.api_key when set.
const APIKeyEnv = "OPENROUTER_API_KEY"

const placeholderKeyPrefix = "sk-or-v1-REPLACE"

// Config is the full runtime configuration for postgen.
type Config struct {
	Workbook    Workbook    `toml:"workbook"`
	Images      Images      `toml:"images"`
	LLM         LLM         `toml:"llm"`
	Placeholder Placeholder `toml:"placeholder"`
	Log         Log         `toml:"log"`
}

// Workbook points at the spreadsheet that holds the topics.
type Workbook struct {
	Path  string `toml:"path"`
	Sheet string `toml:"sheet"`
}

// Images controls where generated images and debug dumps land.
type Images struct {
	Dir      string `toml:"dir"`
	DebugDir string `toml:"debug_dir"`
}

// LLM holds the text and image endpoint settings.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TextModel      string `toml:"text_model"`
	ImageModel     string `toml:"image_model"`
	ImageURL       string `toml:"image_url"`
	ImageSize      string `toml:"image_size"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
	PlainText      bool   `toml:"plain_text"`
}

// Placeholder configures the locally rendered fallback image.
type Placeholder struct {
	FontPaths []string `toml:"font_paths"`
	Footer    string   `toml:"footer"`
}

// Log configures the zap logger.
type Log struct {
	Level string `toml:"level"`
	Mode  string `toml:"mode"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Workbook: Workbook{Path: "linkedin_posting_calendar.xlsx"},
		Images:   Images{Dir: "images"},
		LLM: LLM{
			BaseURL:        "https://openrouter.ai/api/v1/",
			TextModel:      "openai/gpt-3.5-turbo",
			ImageModel:     "stability-ai/stable-diffusion-xl",
			ImageURL:       "https://openrouter.ai/api/v1/images",
			ImageSize:      "1024x1024",
			TimeoutSeconds: 60,
			MaxRetries:     2,
		},
		Placeholder: Placeholder{
			FontPaths: []string{"arial.ttf"},
			Footer:    "Data Engineering • AI • Practical Tips",
		},
		Log: Log{Level: "info", Mode: "development"},
	}
}

// Load reads a TOML config from disk on top of Default. An empty path or a
// missing file yields the defaults. The API key env var always wins.
func Load(path string) (Config, error) {
	cfg := Default()
	path = strings.TrimSpace(path)
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnvOverrides()
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if key := strings.TrimSpace(os.Getenv(APIKeyEnv)); key != "" {
		c.LLM.APIKey = key
	}
}

func (c *Config) normalize() {
	def := Default()
	c.Workbook.Path = strings.TrimSpace(c.Workbook.Path)
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = def.LLM.BaseURL
	}
	if !strings.HasSuffix(c.LLM.BaseURL, "/") {
		c.LLM.BaseURL += "/"
	}
	if c.LLM.ImageURL == "" {
		c.LLM.ImageURL = def.LLM.ImageURL
	}
	if c.LLM.ImageSize == "" {
		c.LLM.ImageSize = def.LLM.ImageSize
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = def.LLM.TimeoutSeconds
	}
	if c.LLM.MaxRetries <= 0 {
		c.LLM.MaxRetries = def.LLM.MaxRetries
	}
	if c.Images.Dir == "" {
		c.Images.Dir = def.Images.Dir
	}
}

// Timeout returns the HTTP timeout for both endpoints.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// Validate checks the settings a run cannot start without. requireKey is
// false for dry runs, which never reach the network.
func (c Config) Validate(requireKey bool) error {
	if requireKey {
		if c.LLM.APIKey == "" || strings.HasPrefix(c.LLM.APIKey, placeholderKeyPrefix) {
			return fmt.Errorf("%w: set llm.api_key or %s before running", ErrConfiguration, APIKeyEnv)
		}
	}
	if c.Workbook.Path == "" {
		return fmt.Errorf("%w: workbook.path is required", ErrConfiguration)
	}
	if _, err := os.Stat(c.Workbook.Path); err != nil {
		return fmt.Errorf("%w: excel file not found: %s", ErrConfiguration, c.Workbook.Path)
	}
	if c.LLM.TextModel == "" {
		return fmt.Errorf("%w: llm.text_model is required", ErrConfiguration)
	}
	return nil
}
