// Package config loads the HCL configuration file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/memorymatch/internal/game"
)

// DefaultPath is where the CLI looks for a config file.
const DefaultPath = "memorymatch.hcl"

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config is the complete configuration.
type Config struct {
	Game    GameSettings
	Storage StorageConfig
	Server  ServerSettings
	UI      UISettings
}

// GameSettings tunes timing and the random palette.
type GameSettings struct {
	UnlockDelayMS    int     `hcl:"unlock_delay_ms,optional"`
	MismatchDelayMS  int     `hcl:"mismatch_delay_ms,optional"`
	WinDelayMS       int     `hcl:"win_delay_ms,optional"`
	MinColors        int     `hcl:"min_colors,optional"`
	MaxColors        int     `hcl:"max_colors,optional"`
	MinColorDistance float64 `hcl:"min_color_distance,optional"`
	MaxColorAttempts int     `hcl:"max_color_attempts,optional"`
}

// StorageConfig selects where the high-score ledger is kept.
type StorageConfig struct {
	Backend string `hcl:"backend,optional"`
	Path    string `hcl:"path,optional"`
	Key     string `hcl:"key,optional"`
}

// ServerSettings configures the browser server.
type ServerSettings struct {
	Address       string `hcl:"address,optional"`
	Port          int    `hcl:"port,optional"`
	LogLevel      string `hcl:"log_level,optional"`
	AllowedOrigin string `hcl:"allowed_origin,optional"`
}

// UISettings configures the terminal UI.
type UISettings struct {
	LogLevel  string `hcl:"log_level,optional"`
	LogFile   string `hcl:"log_file,optional"`
	TrueColor bool   `hcl:"true_color,optional"`
}

// fileConfig mirrors the file layout; every block is optional.
type fileConfig struct {
	Game    *GameSettings   `hcl:"game,block"`
	Storage *StorageConfig  `hcl:"storage,block"`
	Server  *ServerSettings `hcl:"server,block"`
	UI      *UISettings     `hcl:"ui,block"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Game: GameSettings{
			UnlockDelayMS:    300,
			MismatchDelayMS:  1000,
			WinDelayMS:       500,
			MinColors:        2,
			MaxColors:        32,
			MinColorDistance: 20,
			MaxColorAttempts: 10000,
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			Path:    "data",
			Key:     "memScores",
		},
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		UI: UISettings{
			LogLevel: "warn",
			LogFile:  "memorymatch.log",
		},
	}
}

// LoadConfig reads filename, falling back to defaults when it does not
// exist. Settings left unset in the file keep their default value.
func LoadConfig(filename string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return cfg, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var fc fileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &fc)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if fc.Game != nil {
		g := fc.Game
		setInt(&cfg.Game.UnlockDelayMS, g.UnlockDelayMS)
		setInt(&cfg.Game.MismatchDelayMS, g.MismatchDelayMS)
		setInt(&cfg.Game.WinDelayMS, g.WinDelayMS)
		setInt(&cfg.Game.MinColors, g.MinColors)
		setInt(&cfg.Game.MaxColors, g.MaxColors)
		setInt(&cfg.Game.MaxColorAttempts, g.MaxColorAttempts)
		if g.MinColorDistance != 0 {
			cfg.Game.MinColorDistance = g.MinColorDistance
		}
	}
	if fc.Storage != nil {
		setString(&cfg.Storage.Backend, fc.Storage.Backend)
		setString(&cfg.Storage.Path, fc.Storage.Path)
		setString(&cfg.Storage.Key, fc.Storage.Key)
	}
	if fc.Server != nil {
		setString(&cfg.Server.Address, fc.Server.Address)
		setInt(&cfg.Server.Port, fc.Server.Port)
		setString(&cfg.Server.LogLevel, fc.Server.LogLevel)
		setString(&cfg.Server.AllowedOrigin, fc.Server.AllowedOrigin)
	}
	if fc.UI != nil {
		setString(&cfg.UI.LogLevel, fc.UI.LogLevel)
		setString(&cfg.UI.LogFile, fc.UI.LogFile)
		cfg.UI.TrueColor = fc.UI.TrueColor
	}

	return cfg, nil
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate checks the configuration for values the game cannot run with.
func (c *Config) Validate() error {
	g := c.Game
	if g.UnlockDelayMS < 0 || g.MismatchDelayMS < 0 || g.WinDelayMS < 0 {
		return fmt.Errorf("game: delays must not be negative")
	}
	if g.MinColors < 1 {
		return fmt.Errorf("game: min_colors must be at least 1, got %d", g.MinColors)
	}
	if g.MaxColors < g.MinColors {
		return fmt.Errorf("game: max_colors (%d) must not be less than min_colors (%d)", g.MaxColors, g.MinColors)
	}
	if g.MinColorDistance < 0 || g.MinColorDistance > 100 {
		return fmt.Errorf("game: min_color_distance must be between 0 and 100, got %g", g.MinColorDistance)
	}
	if g.MaxColorAttempts < 1 {
		return fmt.Errorf("game: max_color_attempts must be positive")
	}

	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage: path is required for the %s backend", c.Storage.Backend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("storage: unknown backend %q", c.Storage.Backend)
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		return fmt.Errorf("storage: key must not be empty")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	for _, lvl := range []string{c.Server.LogLevel, c.UI.LogLevel} {
		switch strings.ToLower(lvl) {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("invalid log level %q", lvl)
		}
	}

	return nil
}

// Timings converts the delay settings for the turn state machine.
func (g GameSettings) Timings() game.Timings {
	return game.Timings{
		Unlock:   time.Duration(g.UnlockDelayMS) * time.Millisecond,
		Mismatch: time.Duration(g.MismatchDelayMS) * time.Millisecond,
		Win:      time.Duration(g.WinDelayMS) * time.Millisecond,
	}
}

// ServerAddress returns host:port.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
