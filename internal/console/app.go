// Package console is the application context of the operator console. It owns
// every long-lived component and rebuilds them from scratch on reload.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/M-Chimiste/DCSOlympus/internal/api"
	"github.com/M-Chimiste/DCSOlympus/internal/area"
	"github.com/M-Chimiste/DCSOlympus/internal/cache"
	"github.com/M-Chimiste/DCSOlympus/internal/clock"
	"github.com/M-Chimiste/DCSOlympus/internal/config"
	"github.com/M-Chimiste/DCSOlympus/internal/contextmenu"
	"github.com/M-Chimiste/DCSOlympus/internal/dispatcher"
	"github.com/M-Chimiste/DCSOlympus/internal/display"
	"github.com/M-Chimiste/DCSOlympus/internal/features"
	"github.com/M-Chimiste/DCSOlympus/internal/groundunits"
	"github.com/M-Chimiste/DCSOlympus/internal/influx"
	"github.com/M-Chimiste/DCSOlympus/internal/journal"
	"github.com/M-Chimiste/DCSOlympus/internal/logging"
	"github.com/M-Chimiste/DCSOlympus/internal/mission"
	"github.com/M-Chimiste/DCSOlympus/internal/monitor"
	intOtel "github.com/M-Chimiste/DCSOlympus/internal/otel"
	"github.com/M-Chimiste/DCSOlympus/internal/session"
	"github.com/M-Chimiste/DCSOlympus/internal/syncloop"
	"github.com/M-Chimiste/DCSOlympus/internal/transport/websocket"
	"github.com/M-Chimiste/DCSOlympus/internal/units"
	"github.com/M-Chimiste/DCSOlympus/pkg/core"
)

// Name is used for the log file and the performance backup file.
const Name = "olympus_console"

// ErrNotInitialized is returned by operations that need a running console.
var ErrNotInitialized = errors.New("console not initialized")

// Options are process-level settings that survive reloads.
type Options struct {
	ConfigDir string
	// LogLevel and CommandMode override the config file when set.
	LogLevel    string
	CommandMode string
	// LogWriter replaces the per-run log file.
	LogWriter io.Writer
	Clock     clock.Clock
}

// components are rebuilt on every Init, in this order.
type components struct {
	ctx    context.Context
	cancel context.CancelFunc

	features   *features.Registry
	client     *api.Client
	unitCache  *cache.UnitCache
	mission    *mission.Context
	journal    *journal.Journal
	monitor    *session.Monitor
	ws         *websocket.Sender
	layer      *area.Layer
	units      *units.Manager
	menu       *contextmenu.Menu
	display    *display.Attributes
	dispatcher *dispatcher.Dispatcher
	perf       *influx.Manager
	loop       *syncloop.Loop
	status     *monitor.Service
}

// App is the application context.
type App struct {
	opts Options

	Logger      *slog.Logger
	zlog        zerolog.Logger
	slogManager *logging.SlogManager
	otel        *intOtel.Provider
	logFile     *os.File
	status      *StatusPanel

	sessionHash atomic.Value
	reloadCh    chan reloadRequest
	reloads     atomic.Uint64
	// live is the generation whose components are running, 0 when torn down.
	live atomic.Uint64

	mu         sync.Mutex
	coalition  core.Coalition
	generation uint64
	cur        *components
}

// New loads configuration and sets up logging and telemetry. Components are
// built by Init.
func New(opts Options) (*App, error) {
	start := time.Now()
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}

	a := &App{
		opts:      opts,
		reloadCh:  make(chan reloadRequest, 1),
		coalition: core.CoalitionBlue,
	}
	a.sessionHash.Store("")
	cfgErr := a.loadConfig()

	var w io.Writer
	if opts.LogWriter != nil {
		w = opts.LogWriter
	} else if f, err := logging.OpenLogFile(config.GetString("logsDir"), Name, start); err == nil {
		a.logFile = f
		w = f
	} else {
		fmt.Fprintf(os.Stderr, "Failed to open log file, logging to stdout: %v\n", err)
	}

	prov, otelErr := intOtel.New(intOtel.FromConfig(config.GetOTelConfig(), w))
	if otelErr != nil {
		prov, _ = intOtel.New(intOtel.Config{})
	}
	a.otel = prov

	a.slogManager = logging.NewSlogManager()
	var graylogErr error
	if config.GetBool("graylog.enabled") {
		graylogErr = a.slogManager.EnableGraylog(config.GetString("graylog.address"))
	}
	a.slogManager.SetContextProvider(a.logContext)
	a.slogManager.Setup(w, config.GetString("logLevel"), prov.LoggerProvider())
	a.Logger = a.slogManager.Logger()
	a.status = NewStatusPanel(a.Logger.With("component", "status"))
	a.zlog = newZerolog(w, config.GetString("logLevel"), a)

	if cfgErr != nil {
		a.Logger.Warn("Failed to load config, using defaults!", "error", cfgErr)
	} else {
		a.Logger.Info("Loaded config", "dir", opts.ConfigDir)
	}
	if otelErr != nil {
		a.Logger.Warn("OTel disabled", "error", otelErr)
	}
	if graylogErr != nil {
		a.Logger.Warn("Graylog disabled", "error", graylogErr)
	}
	return a, nil
}

func (a *App) loadConfig() error {
	err := config.Load(a.opts.ConfigDir)
	if a.opts.LogLevel != "" {
		viper.Set("logLevel", a.opts.LogLevel)
	}
	if a.opts.CommandMode != "" {
		viper.Set("commands.mode", a.opts.CommandMode)
	}
	return err
}

// newZerolog builds the logger used by the journal and influx managers.
func newZerolog(w io.Writer, level string, a *App) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}).
		Level(lvl).
		With().Timestamp().Logger().
		Hook(zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
			e.Str("sessionHash", a.currentHash()).Bool("connected", a.status.Connected())
		}))
}

func (a *App) logContext() []slog.Attr {
	connected := false
	if a.status != nil {
		connected = a.status.Connected()
	}
	return []slog.Attr{
		slog.String("sessionHash", a.currentHash()),
		slog.Bool("connected", connected),
	}
}

func (a *App) currentHash() string {
	s, _ := a.sessionHash.Load().(string)
	return s
}

// Init builds every component, seeds the stores with one full fetch and starts
// the sync loop. It fails if the console is already running.
func (a *App) Init(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cur != nil {
		return errors.New("console already initialized")
	}
	if a.generation > 0 {
		if err := a.loadConfig(); err != nil {
			a.Logger.Debug("Config reload fell back to defaults", "error", err)
		}
	}

	c, err := a.build(ctx)
	if err != nil {
		return err
	}

	a.sessionHash.Store("")
	a.status.Reset()
	if err := c.client.Healthcheck(c.ctx); err != nil {
		a.Logger.Warn("Server healthcheck failed", "error", err)
	} else {
		a.Logger.Info("Server reachable", "address", config.GetServerConfig().Address)
	}
	a.live.Store(a.generation + 1)
	if err := c.loop.Start(c.ctx); err != nil {
		a.live.Store(0)
		a.release(c)
		return fmt.Errorf("start sync loop: %w", err)
	}
	if c.status != nil {
		if err := c.status.Start(); err != nil {
			a.Logger.Warn("Status monitor not started", "error", err)
		}
	}

	a.cur = c
	a.generation++
	a.Logger.Info("Console initialized",
		"generation", a.generation,
		"commandMode", c.units.CommandMode(),
		"features", c.features.Enabled())
	return nil
}

func (a *App) build(ctx context.Context) (*components, error) {
	c := &components{}
	c.ctx, c.cancel = context.WithCancel(ctx)
	fail := func(err error) (*components, error) {
		a.release(c)
		return nil, err
	}

	c.features = features.NewRegistry(config.GetFeatures())

	srv := config.GetServerConfig()
	c.unitCache = cache.NewUnitCache()
	c.client = api.New(api.Config{
		BaseURL:  srv.Address,
		Username: srv.Username,
		Password: srv.Password,
		Timeout:  srv.Timeout,
		Cursor:   c.unitCache,
	})
	c.mission = mission.NewContext()

	if c.features.Get(features.Journal).IsEnabled() {
		j, err := journal.Open(config.GetJournalConfig(), a.zlog.With().Str("component", "journal").Logger())
		if err != nil {
			a.Logger.Warn("Journal disabled", "error", err)
		} else {
			c.journal = j
		}
	}
	c.monitor = session.NewMonitor(
		a.reloaderFor(a.generation+1),
		&sessionObserver{app: a, journal: c.journal},
		a.Logger.With("component", "session"),
	)

	cmds := config.GetCommandsConfig()
	mode := core.ParseCommandMode(cmds.Mode)
	sender := a.commandSender(c, cmds, srv, mode)

	gu := groundunits.Default()
	c.layer = area.NewLayer(a.Logger.With("component", "areas"))
	deps := units.Dependencies{
		Sender:      sender,
		GroundUnits: gu,
		Logger:      a.Logger.With("component", "units"),
	}
	if c.journal != nil {
		deps.Recorder = c.journal
	}
	c.units = units.NewManager(deps, mode)

	menu, err := contextmenu.New(contextmenu.Dependencies{
		Units:        c.units,
		Layer:        c.layer,
		Capabilities: gu,
		Logger:       a.Logger.With("component", "contextmenu"),
	})
	if err != nil {
		return fail(fmt.Errorf("create context menu: %w", err))
	}
	c.menu = menu
	c.display = display.New()

	d, err := dispatcher.New(logging.NewDispatcherLogger(a.Logger))
	if err != nil {
		return fail(fmt.Errorf("create dispatcher: %w", err))
	}
	c.dispatcher = d
	c.menu.Register(c.ctx, d)
	c.display.Register(d)

	loopDeps := syncloop.Dependencies{
		Ingest:  c.client,
		Units:   c.unitCache,
		Mission: c.mission,
		Session: c.monitor,
		Status:  a.status,
		Clock:   a.opts.Clock,
		Logger:  a.Logger.With("component", "sync"),
	}
	if c.features.Get(features.Performance).IsEnabled() {
		if perf := a.performanceRecorder(c.ctx); perf != nil {
			c.perf = perf
			loopDeps.Perf = perf
		}
	}

	sc := config.GetSyncConfig()
	loop, err := syncloop.New(loopDeps, syncloop.Config{
		UpdateInterval:       sc.UpdateInterval,
		DisconnectedInterval: sc.DisconnectedUpdateInterval,
		RefreshInterval:      sc.RefreshInterval,
	})
	if err != nil {
		return fail(fmt.Errorf("create sync loop: %w", err))
	}
	c.loop = loop

	if config.GetBool("monitor.enabled") {
		logsDir := config.GetString("logsDir")
		if err := os.MkdirAll(logsDir, 0o755); err != nil {
			a.Logger.Warn("Status monitor disabled", "error", err)
		} else {
			c.status = monitor.NewService(monitor.Dependencies{
				Loop:        loop,
				Units:       c.unitCache,
				Areas:       c.layer,
				Connected:   a.status.Connected,
				SessionHash: a.currentHash,
				StatusFile:  filepath.Join(logsDir, "status.json"),
				Interval:    viper.GetDuration("monitor.interval"),
				Clock:       a.opts.Clock,
				Logger:      a.Logger.With("component", "monitor"),
			})
		}
	}
	return c, nil
}

// commandSender picks the websocket stream when configured and reachable,
// otherwise HTTP PUTs through the ingest client.
func (a *App) commandSender(c *components, cmds config.CommandsConfig, srv config.ServerConfig, mode core.CommandMode) units.Sender {
	if cmds.Transport != "websocket" {
		return c.client
	}
	ws := websocket.New(websocket.Config{
		URL:        cmds.WebsocketURL,
		Token:      srv.Password,
		AckTimeout: cmds.AckTimeout,
	}, a.Logger.With("component", "websocket"))
	if err := ws.Connect(c.ctx, websocket.HelloPayload{CommandMode: mode, Coalition: a.coalition}); err != nil {
		a.Logger.Warn("Command stream unavailable, falling back to HTTP", "url", cmds.WebsocketURL, "error", err)
		_ = ws.Close()
		return c.client
	}
	c.ws = ws
	return ws
}

func (a *App) performanceRecorder(ctx context.Context) *influx.Manager {
	cfg := config.GetInfluxConfig()
	if !cfg.Enabled {
		a.Logger.Info("Performance feature on but influx.enabled is false")
		return nil
	}
	backup := filepath.Join(config.GetString("logsDir"), Name+".performance.lp.gz")
	m := influx.NewManager(cfg, a.zlog.With().Str("component", "influx").Logger(), backup)
	if err := m.Connect(ctx); err != nil {
		a.Logger.Warn("Performance recording disabled", "error", err)
		return nil
	}
	return m
}

// release stops and closes whatever c holds. Safe on partially built components.
func (a *App) release(c *components) {
	c.cancel()
	if c.status != nil {
		c.status.Stop()
	}
	if c.loop != nil {
		c.loop.Stop()
	}
	if c.dispatcher != nil {
		c.dispatcher.Close()
	}
	if c.menu != nil {
		c.menu.Hide()
	}
	if c.layer != nil {
		c.layer.Clear()
	}
	if c.ws != nil {
		if err := c.ws.Close(); err != nil {
			a.Logger.Debug("Command stream close failed", "error", err)
		}
	}
	if c.perf != nil {
		if err := c.perf.Close(); err != nil {
			a.Logger.Debug("Influx close failed", "error", err)
		}
	}
	if c.journal != nil {
		if err := c.journal.Close(); err != nil {
			a.Logger.Debug("Journal close failed", "error", err)
		}
	}
}

// Teardown stops the sync loop and releases every component. Late responses
// from the stopped loop are discarded. No-op when not initialized.
func (a *App) Teardown() {
	a.mu.Lock()
	c := a.cur
	a.cur = nil
	a.mu.Unlock()

	if c == nil {
		return
	}
	a.live.Store(0)
	a.release(c)
	a.Logger.Info("Console torn down")
}

type reloadRequest struct {
	generation uint64
	reason     string
}

// Reload requests a teardown followed by a fresh Init of the running console.
// It never blocks, so it can be called from inside a sync tick; Run performs
// the reload. Requests made while one is pending are merged.
func (a *App) Reload(reason string) {
	a.enqueueReload(reloadRequest{generation: a.live.Load(), reason: reason})
}

// reloaderFor binds reload requests to generation gen. Requests from a
// generation that is no longer live are ignored.
func (a *App) reloaderFor(gen uint64) session.Reloader {
	return session.ReloaderFunc(func(reason string) {
		if a.live.Load() != gen {
			a.Logger.Debug("Ignoring reload from retired console", "generation", gen, "reason", reason)
			return
		}
		a.enqueueReload(reloadRequest{generation: gen, reason: reason})
	})
}

func (a *App) enqueueReload(req reloadRequest) {
	select {
	case a.reloadCh <- req:
	default:
		a.Logger.Debug("Reload already pending", "reason", req.reason)
	}
}

// Run initializes the console and serves reload requests until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if err := a.Init(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			a.Teardown()
			return nil
		case req := <-a.reloadCh:
			if req.generation != a.live.Load() {
				a.Logger.Debug("Dropping stale reload request", "generation", req.generation, "reason", req.reason)
				continue
			}
			a.Logger.Warn("Reloading console", "reason", req.reason, "generation", req.generation)
			a.Teardown()
			a.reloads.Add(1)
			if err := a.Init(ctx); err != nil {
				return fmt.Errorf("reload: %w", err)
			}
		}
	}
}

// Shutdown tears down and flushes logging and telemetry.
func (a *App) Shutdown(ctx context.Context) error {
	a.Teardown()
	a.Logger.Info("Console shutting down")

	errs := []error{a.slogManager.Close(ctx), a.otel.Shutdown(ctx)}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
	}
	return errors.Join(errs...)
}

// Generation counts successful Inits.
func (a *App) Generation() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.generation
}

// Reloads counts reloads performed by Run.
func (a *App) Reloads() uint64 {
	return a.reloads.Load()
}

// ActiveCoalition returns the coalition the operator is acting for.
func (a *App) ActiveCoalition() core.Coalition {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.coalition
}

// SetActiveCoalition changes the coalition the operator is acting for.
func (a *App) SetActiveCoalition(c core.Coalition) error {
	if !c.Valid() {
		return fmt.Errorf("invalid coalition %q", c)
	}
	a.mu.Lock()
	prev := a.coalition
	a.coalition = c
	a.mu.Unlock()
	if prev != c {
		a.Logger.Info("Active coalition changed", "from", prev, "to", c)
	}
	return nil
}

// Status returns the connection status panel.
func (a *App) Status() *StatusPanel {
	return a.status
}

func (a *App) current() (*components, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cur == nil {
		return nil, ErrNotInitialized
	}
	return a.cur, nil
}
