package profiler

import (
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "vrterm"

// Profiler tracks frame rate and memory statistics and owns the process metrics.
// Stats are logged at a configurable interval; metrics are served from a private registry.
type Profiler struct {
	mu *sync.Mutex

	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	logger   *zap.Logger
	registry *prometheus.Registry

	frames         prometheus.Counter
	contentChanges prometheus.Counter
	drawErrors     prometheus.Counter
	textureUploads prometheus.Counter
	fps            prometheus.Gauge
	heapBytes      prometheus.Gauge
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - opts: variadic list of ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(opts ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		mu:             &sync.Mutex{},
		lastTime:       time.Now(),
		updateInterval: time.Second,
		logger:         zap.NewNop(),
		registry:       prometheus.NewRegistry(),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Stereo frames presented.",
		}),
		contentChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_changes_total",
			Help:      "Times the screen content was marked dirty.",
		}),
		drawErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draw_errors_total",
			Help:      "Frames aborted by a GPU or upload error.",
		}),
		textureUploads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "texture_uploads_total",
			Help:      "Full-image uploads to the screen texture.",
		}),
		fps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fps",
			Help:      "Frames per second over the last update interval.",
		}),
		heapBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "heap_bytes",
			Help:      "Live heap bytes at the last update interval.",
		}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.registry.MustRegister(p.frames, p.contentChanges, p.drawErrors, p.textureUploads, p.fps, p.heapBytes)
	return p
}

// Frames returns the presented frame counter.
func (p *Profiler) Frames() prometheus.Counter {
	return p.frames
}

// ContentChanges returns the counter of dirty marks.
func (p *Profiler) ContentChanges() prometheus.Counter {
	return p.contentChanges
}

// DrawErrors returns the counter of aborted frames.
func (p *Profiler) DrawErrors() prometheus.Counter {
	return p.drawErrors
}

// TextureUploads returns the counter the texture bridge increments on each upload.
func (p *Profiler) TextureUploads() prometheus.Counter {
	return p.textureUploads
}

// Registry returns the registry every profiler metric is registered with.
func (p *Profiler) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
//
// Returns:
//   - http.Handler: the /metrics handler
func (p *Profiler) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times, total memory.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			pause := p.memStats.PauseNs[i%256] / 1000
			if pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	p.fps.Set(fps)
	p.heapBytes.Set(float64(p.memStats.Alloc))

	p.logger.Info("profile",
		zap.Float64("fps", fps),
		zap.Float64("heap_mb", float64(p.memStats.Alloc)/1024/1024),
		zap.Float64("alloc_rate_mb_s", allocRateMB),
		zap.Uint32("gc", gcCount),
		zap.Uint64("gc_last_pause_us", lastPauseUs),
		zap.Uint64("gc_max_pause_us", maxPauseUs),
		zap.Float64("sys_mb", float64(p.memStats.Sys)/1024/1024),
	)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
