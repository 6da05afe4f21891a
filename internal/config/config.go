package config

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mapsync-dev/mapsync/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "mapsync.yaml"

	// DefaultLevel is the level name used when none is configured.
	DefaultLevel = "Untitled"

	// DefaultPort is the default TCP port of the server.
	DefaultPort = 7777

	// DefaultTick is the default interval between session ticks.
	DefaultTick = 100 * time.Millisecond

	// DefaultWriteTimeout bounds a single frame write to a peer.
	DefaultWriteTimeout = 5 * time.Second

	// DefaultMaxFrameSize is the largest frame accepted from a peer.
	DefaultMaxFrameSize = 64 << 20

	// DefaultResyncThreshold is the resync size above which the operator
	// is asked to confirm the transfer.
	DefaultResyncThreshold = 16 << 20
)

// Config represents the complete mapsync.yaml configuration.
type Config struct {
	// Level is the name of the level this peer edits.
	Level string `yaml:"level"`

	// Tick is the interval between session ticks in headless mode.
	Tick time.Duration `yaml:"tick"`

	// Server contains listener configuration.
	Server ServerConfig `yaml:"server"`

	// Session contains per-connection limits and behaviour.
	Session SessionConfig `yaml:"session"`

	// Log contains logging configuration.
	Log LogConfig `yaml:"log"`

	// Capture records received frames for later inspection.
	Capture CaptureConfig `yaml:"capture,omitempty"`

	// Scene describes the objects the in-memory scene starts with.
	Scene SceneSeed `yaml:"scene,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains listener settings.
type ServerConfig struct {
	// Port is the TCP port the server binds to.
	Port int `yaml:"port"`

	// WebSocket is the listen address of the optional WebSocket carrier
	// (e.g. ":7778"). Empty disables it.
	WebSocket string `yaml:"websocket,omitempty"`

	// Admin is the listen address of the admin HTTP endpoint
	// (/healthz, /status, /metrics). Empty disables it.
	Admin string `yaml:"admin,omitempty"`
}

// SessionConfig contains session settings shared by client and server.
type SessionConfig struct {
	// WriteTimeout bounds a single write to a peer.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxFrameSize is the largest frame length accepted from a peer.
	MaxFrameSize int `yaml:"max_frame_size"`

	// ResyncThreshold is the size in bytes above which a resync response
	// needs confirmation. Zero disables the check.
	ResyncThreshold int `yaml:"resync_threshold"`

	// ApplyRenames controls whether remote renames are applied locally.
	ApplyRenames bool `yaml:"apply_renames"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// CaptureConfig contains frame recording settings.
type CaptureConfig struct {
	// File is the local file received frames are written to. Empty
	// disables recording.
	File string `yaml:"file,omitempty"`

	// MaxBytes stops recording once the file would grow past it.
	// Zero means no limit.
	MaxBytes int64 `yaml:"max_bytes,omitempty"`

	// Upload is where the file is copied when the session ends: a path
	// or s3://bucket/key.
	Upload string `yaml:"upload,omitempty"`

	// Region and Endpoint configure the S3 client for s3:// uploads.
	// Endpoint selects an S3-compatible service.
	Region   string `yaml:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Level: DefaultLevel,
		Tick:  DefaultTick,
		Server: ServerConfig{
			Port: DefaultPort,
		},
		Session: SessionConfig{
			WriteTimeout:    DefaultWriteTimeout,
			MaxFrameSize:    DefaultMaxFrameSize,
			ResyncThreshold: DefaultResyncThreshold,
			ApplyRenames:    true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for mapsync.yaml in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path. Fields not
// present in the file keep their defaults. Unknown fields are rejected.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeConfigMissing).
				WithDetail("No " + ConfigFileName + " found at " + path)
		}
		return nil, errors.New(errors.CodeConfigInvalid).Wrap(err)
	}

	cfg := New()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.New(errors.CodeConfigInvalid).
			WithDetail("Failed to parse " + path + ": " + err.Error())
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return errors.New(errors.CodeConfigWrite).Wrap(err)
	}
	if err := enc.Close(); err != nil {
		return errors.New(errors.CodeConfigWrite).Wrap(err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.New(errors.CodeConfigWrite).WithOp("write").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for zeroed fields.
func (c *Config) applyDefaults() {
	if c.Level == "" {
		c.Level = DefaultLevel
	}
	if c.Tick == 0 {
		c.Tick = DefaultTick
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Session.WriteTimeout == 0 {
		c.Session.WriteTimeout = DefaultWriteTimeout
	}
	if c.Session.MaxFrameSize == 0 {
		c.Session.MaxFrameSize = DefaultMaxFrameSize
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New(errors.CodeConfigValue).
			WithDetail(fmt.Sprintf("server.port must be between 0 and 65535, got %d", c.Server.Port))
	}
	if c.Tick < 0 {
		return errors.New(errors.CodeConfigValue).
			WithDetail("tick must not be negative")
	}
	if c.Session.WriteTimeout < 0 {
		return errors.New(errors.CodeConfigValue).
			WithDetail("session.write_timeout must not be negative")
	}
	if c.Session.MaxFrameSize < 0 {
		return errors.New(errors.CodeConfigValue).
			WithDetail("session.max_frame_size must not be negative")
	}
	if c.Session.ResyncThreshold < 0 {
		return errors.New(errors.CodeConfigValue).
			WithDetail("session.resync_threshold must not be negative")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return errors.New(errors.CodeConfigValue).WithDetail(err.Error())
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New(errors.CodeConfigValue).
			WithDetail(fmt.Sprintf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.Capture.MaxBytes < 0 {
		return errors.New(errors.CodeConfigValue).
			WithDetail("capture.max_bytes must not be negative")
	}
	if c.Capture.Upload != "" && c.Capture.File == "" {
		return errors.New(errors.CodeConfigValue).
			WithDetail("capture.upload needs capture.file")
	}
	return c.Scene.validate()
}

// Addr returns the TCP listen address of the server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// Logger builds a slog.Logger writing to w according to the log settings.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}
