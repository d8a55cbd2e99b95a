package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-vrterm/config"
	"github.com/Carmen-Shannon/oxy-vrterm/engine"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/camera"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/profiler"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/scene"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/stereo"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/texture"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/window"
	"github.com/Carmen-Shannon/oxy-vrterm/logging"
	"github.com/Carmen-Shannon/oxy-vrterm/terminal"
	"go.uber.org/zap"
)

type runOptions struct {
	configPath string
	headless   bool
	frames     uint64
}

func run(ctx context.Context, opts runOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.headless {
		cfg.Render.Headless = true
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Encoding:    cfg.Logging.Encoding,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	prof := profiler.NewProfiler(profiler.WithLogger(logger.Named("profiler")))
	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, prof.Handler(), logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	r, win, beforeFrame, err := newRenderer(cfg, logger)
	if err != nil {
		return err
	}
	defer r.Close()

	bridge := texture.NewBridge(r,
		texture.WithLogger(logger.Named("texture")),
		texture.WithUploadCounter(prof.TextureUploads()),
	)
	screen, err := bridge.Create("terminal screen", image.NewRGBA(image.Rect(0, 0, cfg.Render.ScreenWidth, cfg.Render.ScreenHeight)))
	if err != nil {
		return fmt.Errorf("failed to create screen texture: %w", err)
	}

	sceneOpts := []scene.SceneBuilderOption{scene.WithLogger(logger.Named("scene"))}
	if cfg.Render.ShaderDir != "" {
		sceneOpts = append(sceneOpts, scene.WithShaderDir(cfg.Render.ShaderDir))
	}
	sc, err := scene.NewScene(r, screen, sceneOpts...)
	if err != nil {
		return fmt.Errorf("failed to create scene: %w", err)
	}

	// The engine quits when the last session exits; it is assigned before the first Spawn.
	var eng engine.Engine
	dirty := &stereo.DirtyFlag{}
	sessions, err := newSessionManager(cfg, dirty, prof, func() { eng.Quit() }, logger)
	if err != nil {
		return err
	}
	defer sessions.Close()

	frameCfg := stereo.DefaultFrameConfig()
	head := camera.NewHeadController(
		camera.WithIPD(cfg.Head.IPD),
		camera.WithFov(cfg.Head.FovDegrees*math.Pi/180),
		camera.WithMouseSensitivity(cfg.Head.MouseSensitivity),
		camera.WithAspect(r.EyeAspect()),
		camera.WithClipPlanes(frameCfg.Near(), frameCfg.Far()),
	)

	loop, err := stereo.NewFrameLoop(frameCfg, sc, bridge, sessions, r,
		stereo.WithDirtyFlag(dirty),
		stereo.WithLogger(logger.Named("stereo")),
		stereo.WithFrameCounter(prof.Frames()),
	)
	if err != nil {
		return fmt.Errorf("failed to create frame loop: %w", err)
	}

	eng, err = engine.NewEngine(loop, head,
		engine.WithWindow(win),
		engine.WithRenderer(r),
		engine.WithProfiler(prof),
		engine.WithProfiling(cfg.Logging.Level == "debug"),
		engine.WithRenderFrameLimit(float64(cfg.Render.FrameLimit)),
		engine.WithMaxFrames(opts.frames),
		engine.WithBeforeFrame(beforeFrame),
		engine.WithLogger(logger.Named("engine")),
	)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	if win != nil {
		newBindings(sessions, head, logger.Named("input")).attach(win)
	}

	if _, err := sessions.Spawn(); err != nil {
		return fmt.Errorf("failed to start the first session: %w", err)
	}

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("interrupted")
			eng.Quit()
		case <-eng.Done():
		}
	}()

	logger.Info("running",
		zap.Bool("headless", cfg.Render.Headless),
		zap.Int("screen_width", cfg.Render.ScreenWidth),
		zap.Int("screen_height", cfg.Render.ScreenHeight),
		zap.Uint64("frames", opts.frames),
	)
	eng.Run()
	logger.Info("stopped", zap.Uint64("rendered", eng.Rendered()))

	if win != nil {
		if err := win.Close(); err != nil {
			logger.Warn("close window", zap.Error(err))
		}
	}
	return nil
}

// newRenderer creates the wgpu renderer on a new window, or the recording renderer when headless.
// The returned hook resets the recorder each frame so a long headless run does not grow it.
func newRenderer(cfg *config.Config, logger *zap.Logger) (renderer.Renderer, window.Window, func(), error) {
	msaa := renderer.MSAA4x
	if cfg.Render.MSAA == 1 {
		msaa = renderer.MSAAOff
	}
	opts := []renderer.RendererBuilderOption{
		renderer.WithLogger(logger.Named("renderer")),
		renderer.WithPresentMode(renderer.ParsePresentMode(cfg.Render.PresentMode)),
		renderer.WithMSAA(msaa),
	}

	if cfg.Render.Headless {
		r, rec := renderer.NewHeadlessRenderer(append(opts, renderer.WithSurfaceSize(cfg.Window.Width, cfg.Window.Height))...)
		return r, nil, rec.Reset, nil
	}

	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
	)
	if err != nil {
		return nil, nil, nil, err
	}
	return renderer.NewRenderer(renderer.BackendTypeWGPU, win, opts...), win, nil, nil
}

// newSessionManager builds the rasterizer and the session manager. Every content change marks
// the frame loop's dirty flag and is counted.
func newSessionManager(cfg *config.Config, dirty *stereo.DirtyFlag, prof *profiler.Profiler, onEmpty func(), logger *zap.Logger) (terminal.Manager, error) {
	bellMode, err := terminal.ParseBellMode(cfg.Terminal.Bell)
	if err != nil {
		return nil, err
	}

	raster := terminal.NewRasterizer(cfg.Render.ScreenWidth, cfg.Render.ScreenHeight,
		terminal.WithScale(cfg.Terminal.FontScale),
	)

	sessionOpts := []terminal.SessionBuilderOption{terminal.WithSessionLogger(logger.Named("session"))}
	if cfg.Terminal.Shell != "" {
		sessionOpts = append(sessionOpts, terminal.WithShell(cfg.Terminal.Shell))
	}

	return terminal.NewManager(raster,
		terminal.WithMaxSessions(cfg.Terminal.MaxSessions),
		terminal.WithSessionOptions(sessionOpts...),
		terminal.WithDirtyMarker(func() {
			dirty.Mark()
			prof.ContentChanges().Inc()
		}),
		terminal.WithBell(terminal.NewBell(bellMode, os.Stderr, logger.Named("bell"))),
		terminal.WithEmptyCallback(func() {
			logger.Info("last session exited")
			onEmpty()
		}),
		terminal.WithLogger(logger.Named("terminal")),
	), nil
}

func serveMetrics(addr string, handler http.Handler, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	return srv
}
