package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-vrterm/engine/camera"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/profiler"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/stereo"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/window"
	"go.uber.org/zap"
)

// engine implements the Engine interface.
// Coordinates the render goroutine with the window message loop.
type engine struct {
	wg sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window   window.Window
	renderer renderer.Renderer
	loop     stereo.FrameLoop
	head     camera.HeadController

	profiler         *profiler.Profiler
	profilingEnabled bool
	logger           *zap.Logger

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	maxFrames        uint64        // frames to render before quitting; 0 = until Quit
	rendered         atomic.Uint64
	beforeFrame      func()

	// pendingSize is the latest window size, applied by the render goroutine between frames.
	pendingSize atomic.Pointer[[2]int]
}

// Engine hosts the stereo frame loop. It renders one frame per iteration of its render goroutine
// while the window, if any, runs its message loop on the calling goroutine.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance, or nil when running headless
	Window() window.Window

	// Profiler returns the profiler that owns the process metrics.
	Profiler() *profiler.Profiler

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Rendered returns the number of frame loop iterations run, failed frames included.
	Rendered() uint64

	// Run marks the screen dirty so the first frame uploads content, then renders until Quit,
	// the frame budget, or the window closing. Blocks until the render goroutine exits.
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Done is closed once Quit has been signalled.
	Done() <-chan struct{}
}

var _ Engine = &engine{}

// NewEngine creates a new Engine hosting loop.
//
// Parameters:
//   - loop: the stereo frame loop driven each render iteration
//   - head: the head tracker sampled each frame
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: if loop or head is nil
func NewEngine(loop stereo.FrameLoop, head camera.HeadController, options ...EngineBuilderOption) (Engine, error) {
	if loop == nil {
		return nil, errors.New("engine: nil frame loop")
	}
	if head == nil {
		return nil, errors.New("engine: nil head controller")
	}

	e := &engine{
		quitChannel: make(chan struct{}),
		loop:        loop,
		head:        head,
		logger:      zap.NewNop(),
	}

	for _, opt := range options {
		opt(e)
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}

	if e.renderer != nil {
		e.head.SetAspect(e.renderer.EyeAspect())
	}
	if e.window != nil {
		e.window.SetResizeCallback(e.requestResize)
	}

	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

func (e *engine) Rendered() uint64 {
	return e.rendered.Load()
}

func (e *engine) Done() <-chan struct{} {
	return e.quitChannel
}

func (e *engine) Run() {
	e.loop.Dirty().Mark()

	e.wg.Add(1)
	go e.handleRender()

	if e.window != nil {
		// The message loop must stay on the calling goroutine; it also stops on Quit.
		go func() {
			<-e.quitChannel
			e.window.RequestClose()
		}()
		e.window.ProcessMessages()
		e.signalQuit()
	}

	e.wg.Wait()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// A frame that fails is logged and counted; the next iteration starts from StateIdle.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	// Recover from panics inside the render goroutine to avoid crashing the whole process.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("render goroutine recovered from panic", zap.Any("panic", r))
			e.signalQuit()
		}
	}()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			start := time.Now()

			e.applyResize()
			if e.beforeFrame != nil {
				e.beforeFrame()
			}

			if err := e.loop.RenderFrame(e.head); err != nil {
				e.profiler.DrawErrors().Inc()
				e.logger.Warn("frame failed", zap.Error(err), zap.Uint64("frame", e.rendered.Load()))
			}

			if e.profilingEnabled {
				e.profiler.Tick()
			}

			if n := e.rendered.Add(1); e.maxFrames > 0 && n >= e.maxFrames {
				e.signalQuit()
				return
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
					select {
					case <-e.quitChannel:
						return
					case <-time.After(remaining):
					}
				}
			}
		}
	}
}

// requestResize records a new surface size. Only the latest size is kept.
func (e *engine) requestResize(width, height int) {
	if e.renderer == nil {
		return
	}
	e.pendingSize.Store(&[2]int{width, height})
}

// applyResize reconfigures the surface with the pending size, if any. It runs on the render
// goroutine before a frame starts, so both eyes of a frame always see the same surface.
func (e *engine) applyResize() {
	size := e.pendingSize.Swap(nil)
	if size == nil {
		return
	}
	if err := e.renderer.Resize(size[0], size[1]); err != nil {
		e.logger.Warn("resize surface", zap.Error(err))
		return
	}
	e.head.SetAspect(e.renderer.EyeAspect())
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}
