package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mapsync-dev/mapsync/internal/config"
	"github.com/mapsync-dev/mapsync/internal/errors"
	"github.com/mapsync-dev/mapsync/pkg/admin"
	"github.com/mapsync-dev/mapsync/pkg/capture"
	"github.com/mapsync-dev/mapsync/pkg/codecs"
	"github.com/mapsync-dev/mapsync/pkg/scene"
	"github.com/mapsync-dev/mapsync/pkg/session"
)

const uploadTimeout = 2 * time.Minute

// globalOptions are flags shared by the session commands.
type globalOptions struct {
	configPath string
	level      string
	logLevel   string
	logFormat  string
	admin      string
	yes        bool
	capture    string
	upload     string
}

func (o *globalOptions) register(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVarP(&o.configPath, "config", "c", "", "Config file (default ./"+config.ConfigFileName+" if present)")
	f.StringVarP(&o.level, "level", "l", "", "Level name of the local scene")
	f.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&o.logFormat, "log-format", "", "Log format: text or json")
	f.StringVar(&o.admin, "admin", "", "Admin HTTP address for /healthz, /status and /metrics")
	f.BoolVarP(&o.yes, "yes", "y", false, "Send resync responses of any size without asking")
	f.StringVar(&o.capture, "capture", "", "Record received frames to this file")
	f.StringVar(&o.upload, "upload", "", "Copy the recording here when the session ends (path or s3://bucket/key)")
}

// loadConfig reads the config file, if any, and applies flag overrides.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case o.configPath != "":
		cfg, err = config.LoadFile(o.configPath)
	case config.Exists("."):
		cfg, err = config.Load(".")
	default:
		cfg = config.New()
	}
	if err != nil {
		return nil, err
	}

	if o.level != "" {
		cfg.Level = o.level
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if o.admin != "" {
		cfg.Server.Admin = o.admin
	}
	if o.yes {
		cfg.Session.ResyncThreshold = 0
	}
	if o.capture != "" {
		cfg.Capture.File = o.capture
	}
	if o.upload != "" {
		cfg.Capture.Upload = o.upload
	}
	return cfg, cfg.Validate()
}

// app is one running peer: the scene, its session controller and the
// ambient pieces around them.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	world   *scene.World
	ctl     *session.Controller
	metrics *session.Metrics

	captureFile *os.File
	recorder    *capture.Recorder
}

func newApp(cfg *config.Config, stderr io.Writer) (*app, error) {
	logger := cfg.Logger(stderr)

	world, err := cfg.NewWorld()
	if err != nil {
		return nil, err
	}
	reg, err := codecs.NewRegistry(world)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, world: world}
	if cfg.Capture.File != "" {
		f, err := os.Create(cfg.Capture.File)
		if err != nil {
			return nil, errors.New(errors.CodeCaptureWrite).WithDetail(cfg.Capture.File).Wrap(err)
		}
		a.captureFile = f
		a.recorder = capture.NewRecorder(f, cfg.Capture.MaxBytes)
	}

	a.metrics = session.NewMetrics()
	scfg := session.DefaultConfig()
	scfg.TickInterval = cfg.Tick
	scfg.WriteTimeout = cfg.Session.WriteTimeout
	scfg.MaxFrameSize = cfg.Session.MaxFrameSize
	scfg.ApplyRenames = cfg.Session.ApplyRenames
	scfg.WebSocketAddr = cfg.Server.WebSocket
	scfg.Confirmer = scene.ThresholdConfirm{
		Limit:  cfg.Session.ResyncThreshold,
		Prompt: &prompt{in: bufio.NewReader(os.Stdin), out: os.Stdout},
	}
	scfg.Logger = logger
	scfg.Metrics = a.metrics
	scfg.Capture = a.recorder

	a.ctl = session.NewController(world, reg, scfg)
	return a, nil
}

// finishCapture closes the recording and uploads it if configured.
func (a *app) finishCapture() error {
	if a.captureFile == nil {
		return nil
	}
	if err := a.recorder.Err(); err != nil {
		warn("Recording stopped early: %v", err)
	}
	if err := a.captureFile.Close(); err != nil {
		return err
	}
	info("Recorded %d frames to %s", a.recorder.Frames(), a.cfg.Capture.File)

	dst := a.cfg.Capture.Upload
	if dst == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()
	client := capture.NewS3Client(a.cfg.Capture.Region, a.cfg.Capture.Endpoint)
	if err := capture.Upload(ctx, a.cfg.Capture.File, dst, client); err != nil {
		return errors.New(errors.CodeCaptureWrite).WithDetail(dst).Wrap(err)
	}
	success("Uploaded recording to %s", dst)
	return nil
}

// serveAdmin starts the admin endpoint when one is configured. It stops
// with ctx.
func (a *app) serveAdmin(ctx context.Context) {
	addr := a.cfg.Server.Admin
	if addr == "" {
		return
	}
	h := admin.NewRouter(a.ctl, a.metrics, a.logger)
	go func() {
		if err := admin.Serve(ctx, addr, h, a.logger, nil); err != nil {
			a.logger.Error("admin endpoint stopped", "error", err)
		}
	}()
	info("Admin:  http://%s/status", addr)
}

// run ticks the controller until ctx is done or, when untilLost is set,
// until the session ends on its own. The recording, if any, is finished
// afterwards.
func (a *app) run(ctx context.Context, untilLost bool) error {
	err := a.loop(ctx, untilLost)
	if cerr := a.finishCapture(); err == nil {
		err = cerr
	}
	return err
}

func (a *app) loop(ctx context.Context, untilLost bool) error {
	ticker := time.NewTicker(a.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.ctl.Cancel()
			fmt.Println()
			info("Session closed")
			return nil
		case <-ticker.C:
			err := a.ctl.Tick(ctx)
			if untilLost && !a.ctl.Active() {
				if err != nil {
					return err
				}
				warn("Session ended by the server")
				return nil
			}
		}
	}
}

// prompt asks the operator on the terminal before a large resync is sent.
type prompt struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *prompt) ConfirmResync(_ int, human string) bool {
	fmt.Fprintf(p.out, "A client asked for the full level (%s). Send it? [y/N] ", human)
	line, err := p.in.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
