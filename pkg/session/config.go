package session

import (
	"log/slog"
	"time"

	"github.com/mapsync-dev/mapsync/pkg/capture"
	"github.com/mapsync-dev/mapsync/pkg/protocol"
	"github.com/mapsync-dev/mapsync/pkg/scene"
)

const (
	// DefaultTickInterval is the time between two synchronization passes.
	DefaultTickInterval = 100 * time.Millisecond

	// DefaultTracerName is the OpenTelemetry tracer used for tick spans.
	DefaultTracerName = "mapsync"
)

// Config configures clients, servers and the controller.
type Config struct {
	// TickInterval is the delay between ticks for Run and Advance.
	// Default: 100ms.
	TickInterval time.Duration

	// WriteTimeout bounds one write to a peer. A peer that does not drain
	// its socket in time is dropped.
	// Default: 5s.
	WriteTimeout time.Duration

	// MaxFrameSize is the largest frame accepted from a peer.
	// Default: protocol.DefaultMaxFrameSize.
	MaxFrameSize int

	// ReadBufferSize is the size of a single socket read.
	// Default: 32KB.
	ReadBufferSize int

	// ReadQueue is the number of unread chunks buffered per connection
	// before the reader waits for the tick to catch up.
	// Default: 64.
	ReadQueue int

	// ApplyRenames applies remote renames to the local scene.
	// Default: true.
	ApplyRenames bool

	// WebSocketAddr, if set, makes Bind also accept peers over WebSocket
	// on this address.
	WebSocketAddr string

	// Confirmer gates full-state resync responses by size.
	// Default: scene.AutoConfirm.
	Confirmer scene.Confirmer

	// Logger is the base logger. Default: slog.Default().
	Logger *slog.Logger

	// Metrics receives counters. Nil disables metrics.
	Metrics *Metrics

	// Capture, if set, records every frame received from a peer.
	Capture *capture.Recorder

	// TracerName names the OpenTelemetry tracer.
	// Default: "mapsync".
	TracerName string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		TickInterval:   DefaultTickInterval,
		WriteTimeout:   5 * time.Second,
		MaxFrameSize:   protocol.DefaultMaxFrameSize,
		ReadBufferSize: 32 * 1024,
		ReadQueue:      64,
		ApplyRenames:   true,
		Confirmer:      scene.AutoConfirm{},
		TracerName:     DefaultTracerName,
	}
}

// withDefaults returns a copy of c with zero fields filled in. A nil c
// yields DefaultConfig.
func (c *Config) withDefaults() *Config {
	defaults := DefaultConfig()
	if c == nil {
		defaults.Logger = slog.Default()
		return defaults
	}
	out := *c
	if out.TickInterval <= 0 {
		out.TickInterval = defaults.TickInterval
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = defaults.WriteTimeout
	}
	if out.MaxFrameSize <= 0 {
		out.MaxFrameSize = defaults.MaxFrameSize
	}
	if out.ReadBufferSize <= 0 {
		out.ReadBufferSize = defaults.ReadBufferSize
	}
	if out.ReadQueue <= 0 {
		out.ReadQueue = defaults.ReadQueue
	}
	if out.Confirmer == nil {
		out.Confirmer = defaults.Confirmer
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	if out.TracerName == "" {
		out.TracerName = defaults.TracerName
	}
	return &out
}
