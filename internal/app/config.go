package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"
)

// Config holds all application configuration.
type Config struct {
	Site     SiteConfig    `koanf:"site" validate:"required"`
	Browser  BrowserConfig `koanf:"browser" validate:"required"`
	Session  SessionConfig `koanf:"session" validate:"required"`
	Capture  CaptureConfig `koanf:"capture" validate:"required"`
	Storage  StorageConfig `koanf:"storage" validate:"required"`
	Collect  CollectConfig `koanf:"collect" validate:"required"`
	Spreads  bool          `koanf:"spreads"`
	Progress bool          `koanf:"progress"`
}

// SiteConfig describes the gallery site's URL layout.
type SiteConfig struct {
	BaseURL    string `koanf:"base_url" validate:"required,url"`
	Collection string `koanf:"collection" validate:"required"`
	LoginPath  string `koanf:"login_path" validate:"required"`
	ReaderPath string `koanf:"reader_path" validate:"required"`
}

// BrowserConfig holds settings for the automated Chrome instance.
type BrowserConfig struct {
	Timeout     time.Duration `koanf:"timeout" validate:"required"`
	Headless    bool          `koanf:"headless"`
	NoSandbox   bool          `koanf:"no_sandbox"`
	ChromePath  string        `koanf:"chrome_path"`
	UserDataDir string        `koanf:"user_data_dir" validate:"required"`
}

// SessionConfig holds login and cookie persistence settings.
type SessionConfig struct {
	CookiesPath   string        `koanf:"cookies_path" validate:"required"`
	LoginSelector string        `koanf:"login_selector" validate:"required"`
	LoginGate     string        `koanf:"login_gate" validate:"required,oneof=console poll fail"`
	LoginTimeout  time.Duration `koanf:"login_timeout" validate:"required"`
}

// CaptureConfig holds manifest interception and page capture settings.
type CaptureConfig struct {
	ManifestPattern      string        `koanf:"manifest_pattern" validate:"required"`
	ManifestResourceType string        `koanf:"manifest_resource_type" validate:"required"`
	ManifestTimeout      time.Duration `koanf:"manifest_timeout" validate:"required"`
	CanvasSelector       string        `koanf:"canvas_selector" validate:"required"`
	PollInterval         time.Duration `koanf:"poll_interval" validate:"required"`
	PollAttempts         int           `koanf:"poll_attempts" validate:"required,min=1"`
	Gesture              GestureConfig `koanf:"gesture" validate:"required"`
}

// GestureConfig bounds the randomized pointer activity sent to the reader.
type GestureConfig struct {
	RegionMin    int           `koanf:"region_min" validate:"min=0"`
	RegionMax    int           `koanf:"region_max" validate:"required,gtfield=RegionMin"`
	Jitter       int           `koanf:"jitter" validate:"min=0"`
	HoldMin      time.Duration `koanf:"hold_min" validate:"required"`
	HoldMax      time.Duration `koanf:"hold_max" validate:"required,gtefield=HoldMin"`
	PageDelayMin time.Duration `koanf:"page_delay_min" validate:"required"`
	PageDelayMax time.Duration `koanf:"page_delay_max" validate:"required,gtefield=PageDelayMin"`
}

// StorageConfig holds output locations.
type StorageConfig struct {
	DownloadDir string `koanf:"download_dir" validate:"required"`
	LedgerPath  string `koanf:"ledger_path" validate:"required"`
}

// CollectConfig holds catalogue listing settings.
type CollectConfig struct {
	ListingPath  string `koanf:"listing_path" validate:"required"`
	ItemSelector string `koanf:"item_selector" validate:"required"`
	NextSelector string `koanf:"next_selector" validate:"required"`
	MaxPages     int    `koanf:"max_pages" validate:"min=0"`
	Output       string `koanf:"output" validate:"required"`
}

// Default returns the built-in configuration. Values loaded from a file are
// layered on top of it.
func Default() Config {
	return Config{
		Site: SiteConfig{
			BaseURL:    "https://www.fakku.net",
			Collection: "hentai",
			LoginPath:  "/login",
			ReaderPath: "/read/page/1",
		},
		Browser: BrowserConfig{
			Timeout:     60 * time.Second,
			Headless:    true,
			UserDataDir: "./data",
		},
		Session: SessionConfig{
			CookiesPath:   "cookies.json",
			LoginSelector: "button[name='login']",
			LoginGate:     "console",
			LoginTimeout:  10 * time.Minute,
		},
		Capture: CaptureConfig{
			ManifestPattern:      "*/read",
			ManifestResourceType: "XHR",
			ManifestTimeout:      30 * time.Second,
			CanvasSelector:       "[data-name='PageView'] > canvas",
			PollInterval:         100 * time.Millisecond,
			PollAttempts:         300,
			Gesture: GestureConfig{
				RegionMin:    10,
				RegionMax:    400,
				Jitter:       5,
				HoldMin:      150 * time.Millisecond,
				HoldMax:      300 * time.Millisecond,
				PageDelayMin: 500 * time.Millisecond,
				PageDelayMax: 1250 * time.Millisecond,
			},
		},
		Storage: StorageConfig{
			DownloadDir: "./downloads",
			LedgerPath:  "done.txt",
		},
		Collect: CollectConfig{
			ListingPath:  "/page/{page}",
			ItemSelector: "a[href*='/hentai/'][data-testid]",
			NextSelector: "a[title='Next Page']",
			Output:       "urls.txt",
		},
		Progress: true,
	}
}

// Load reads configuration from a YAML file on top of the defaults and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			k := koanf.New(".")

			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("loading config from %s: %w", path, err)
			}

			if err := k.Unmarshal("", &cfg); err != nil {
				return nil, fmt.Errorf("unmarshaling config: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration against its struct constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

// ConfigFrom extracts the Config from the CLI command metadata.
func ConfigFrom(cmd *cli.Command) (*Config, error) {
	v, ok := cmd.Root().Metadata["config"]
	if !ok {
		return nil, fmt.Errorf("config not found in command metadata")
	}
	cfg, ok := v.(*Config)
	if !ok {
		return nil, fmt.Errorf("config has unexpected type %T", v)
	}
	return cfg, nil
}
