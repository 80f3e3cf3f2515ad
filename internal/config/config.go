// Package config resolves launcher settings from defaults, the settings file,
// environment variables and command line flags, in increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/coastal-toolkit/tideshell/internal/supervisor"
	"github.com/coastal-toolkit/tideshell/internal/window"
)

// Environment variable names
const (
	EnvDataDir       = "TIDESHELL_DATA_DIR"
	EnvServerCommand = "TIDESHELL_SERVER_CMD"
	EnvWorkDir       = "TIDESHELL_WORKDIR"
	EnvBackend       = "TIDESHELL_BACKEND"
	EnvDiagAddr      = "TIDESHELL_DIAG_ADDR"
	EnvDSN           = "TIDESHELL_DSN"
	EnvDiagPassword  = "TIDESHELL_DIAG_PASSWORD"
)

// Backends
const (
	BackendWails   = "wails"
	BackendLorca   = "lorca"
	BackendBrowser = "browser"
)

const settingsFileName = "settings.json"

// Config 启动器配置
type Config struct {
	DataDir       string        `json:"-"`
	ServerCommand []string      `json:"serverCommand,omitempty"`
	WorkDir       string        `json:"workDir,omitempty"`
	Backend       string        `json:"backend,omitempty"`
	Title         string        `json:"title,omitempty"`
	Width         int           `json:"width,omitempty"`
	Height        int           `json:"height,omitempty"`
	IconPath      string        `json:"iconPath,omitempty"`
	DiagAddr      string        `json:"diagAddr,omitempty"`
	DSN           string        `json:"dsn,omitempty"`
	KillGrace     time.Duration `json:"-"`
	// DiagPassword only comes from the environment
	DiagPassword  string        `json:"-"`
	ShowVersion   bool          `json:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		ServerCommand: []string{"streamlit", "run", "app/main.py"},
		Backend:       BackendWails,
		Title:         "Coastal & Ocean Engineering Toolkit",
		Width:         window.DefaultWidth,
		Height:        window.DefaultHeight,
		IconPath:      filepath.Join("app", "assets", "coastal_bg.jpg"),
		KillGrace:     supervisor.DefaultKillGrace,
	}
}

// DefaultDataDir returns ~/.config/tideshell, or the current directory when
// the home directory is unknown.
func DefaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".config", "tideshell")
}

// Load parses args (without the program name) on top of the environment and
// the settings file found in the data directory.
func Load(args []string) (*Config, error) {
	return load(args, os.Getenv)
}

func load(args []string, getenv func(string) string) (*Config, error) {
	fs := flag.NewFlagSet("tideshell", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	dataDir := fs.String("data", "", "Data directory for settings, history and logs (default: ~/.config/tideshell)")
	serverCmd := fs.String("server-cmd", "", "Server command line, split on whitespace (default: streamlit run app/main.py)")
	workDir := fs.String("workdir", "", "Working directory for the server process")
	backend := fs.String("backend", "", "Window backend: wails, lorca or browser")
	title := fs.String("title", "", "Window title")
	width := fs.Int("width", 0, "Window width")
	height := fs.Int("height", 0, "Window height")
	icon := fs.String("icon", "", "Window icon image path")
	diagAddr := fs.String("diag-addr", "", "Diagnostics server address, e.g. 127.0.0.1:9881 (disabled when empty)")
	killGrace := fs.Duration("kill-grace", 0, "Time to wait for the server to stop before forcing it")
	showVersion := fs.Bool("version", false, "Show version information and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(os.Stderr)
			fs.PrintDefaults()
		}
		return nil, err
	}

	// Data directory: CLI flag > env var > default
	dir := *dataDir
	if dir == "" {
		dir = getenv(EnvDataDir)
	}
	if dir == "" {
		dir = DefaultDataDir()
	}

	cfg := Default()
	if err := cfg.mergeFile(filepath.Join(dir, settingsFileName)); err != nil {
		return nil, err
	}
	cfg.DataDir = dir

	if v := getenv(EnvServerCommand); v != "" {
		cfg.ServerCommand = strings.Fields(v)
	}
	if v := getenv(EnvWorkDir); v != "" {
		cfg.WorkDir = v
	}
	if v := getenv(EnvBackend); v != "" {
		cfg.Backend = v
	}
	if v := getenv(EnvDiagAddr); v != "" {
		cfg.DiagAddr = v
	}
	if v := getenv(EnvDSN); v != "" {
		cfg.DSN = v
	}
	cfg.DiagPassword = getenv(EnvDiagPassword)

	if *serverCmd != "" {
		cfg.ServerCommand = strings.Fields(*serverCmd)
	}
	if *workDir != "" {
		cfg.WorkDir = *workDir
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *title != "" {
		cfg.Title = *title
	}
	if *width > 0 {
		cfg.Width = *width
	}
	if *height > 0 {
		cfg.Height = *height
	}
	if *icon != "" {
		cfg.IconPath = *icon
	}
	if *diagAddr != "" {
		cfg.DiagAddr = *diagAddr
	}
	if *killGrace > 0 {
		cfg.KillGrace = *killGrace
	}
	cfg.ShowVersion = *showVersion

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile overlays non-zero fields of the JSON settings file. A missing
// file is not an error.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	var file settingsFile
	if err := sonic.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("invalid settings file %s: %w", path, err)
	}

	if len(file.ServerCommand) > 0 {
		c.ServerCommand = file.ServerCommand
	}
	if file.WorkDir != "" {
		c.WorkDir = file.WorkDir
	}
	if file.Backend != "" {
		c.Backend = file.Backend
	}
	if file.Title != "" {
		c.Title = file.Title
	}
	if file.Width > 0 {
		c.Width = file.Width
	}
	if file.Height > 0 {
		c.Height = file.Height
	}
	if file.IconPath != "" {
		c.IconPath = file.IconPath
	}
	if file.DiagAddr != "" {
		c.DiagAddr = file.DiagAddr
	}
	if file.DSN != "" {
		c.DSN = file.DSN
	}
	if file.KillGrace != "" {
		grace, err := time.ParseDuration(file.KillGrace)
		if err != nil || grace < 0 {
			return fmt.Errorf("invalid killGrace %q in %s, want a duration such as \"5s\"", file.KillGrace, path)
		}
		if grace > 0 {
			c.KillGrace = grace
		}
	}
	return nil
}

// settingsFile is the settings.json layout. killGrace is a duration string
// like "5s".
type settingsFile struct {
	Config
	KillGrace string `json:"killGrace,omitempty"`
}

// Validate checks the resolved settings.
func (c *Config) Validate() error {
	if len(c.ServerCommand) == 0 {
		return errors.New("server command is empty")
	}
	switch c.Backend {
	case BackendWails, BackendLorca, BackendBrowser:
	default:
		return fmt.Errorf("unknown backend %q (supported: wails, lorca, browser)", c.Backend)
	}
	return nil
}

// Command returns the server command for the supervisor.
func (c *Config) Command() supervisor.Command {
	return supervisor.Command{
		Name:      c.ServerCommand[0],
		Args:      c.ServerCommand[1:],
		Dir:       c.WorkDir,
		KillGrace: c.KillGrace,
	}
}

// WindowOptions returns the options for new windows. A missing icon file is
// not an error; the icon is decorative.
func (c *Config) WindowOptions() window.Options {
	opts := window.Options{Title: c.Title, Width: c.Width, Height: c.Height}
	if c.IconPath != "" {
		if data, err := os.ReadFile(c.IconPath); err == nil {
			opts.Icon = data
		}
	}
	return opts
}

// DBPath is the default SQLite history database.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "tideshell.db")
}

// LogPath is the application log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "tideshell.log")
}

// ProfileDir is the browser profile directory used by the lorca backend.
func (c *Config) ProfileDir() string {
	return filepath.Join(c.DataDir, "chrome-profile")
}
