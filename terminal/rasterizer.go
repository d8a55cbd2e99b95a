package terminal

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	// MinScale and MaxScale bound the integer glyph upscale.
	MinScale = 1
	MaxScale = 4
)

type rasterizer struct {
	mu *sync.Mutex

	width, height int
	scale         int
	face          font.Face
	cellW, cellH  int
	ascent        int
	drawCursor    bool

	pool  worker.DynamicWorkerPool
	bands int
}

// Rasterizer draws a session's grid into a fixed-size RGBA image with a monospace bitmap face.
// Rows are split into bands that are drawn concurrently on a worker pool.
type Rasterizer interface {
	// Render draws the full grid of a session.
	//
	// Parameters:
	//   - s: the session to draw; nil renders an empty black frame
	//
	// Returns:
	//   - *image.RGBA: a new image of the configured size
	Render(s Session) *image.RGBA

	// Grid returns how many cells fit in the image at the current scale.
	//
	// Returns:
	//   - int: columns
	//   - int: rows
	Grid() (cols, rows int)

	// Scale returns the current integer glyph scale.
	Scale() int

	// SetScale changes the glyph scale.
	//
	// Parameters:
	//   - scale: between MinScale and MaxScale
	//
	// Returns:
	//   - error: if scale is out of range
	SetScale(scale int) error

	// Size returns the image size in pixels.
	Size() (width, height int)

	// Close stops the worker pool.
	Close()
}

var _ Rasterizer = &rasterizer{}

// NewRasterizer creates a rasterizer for width × height images using the 7×13 basic face.
//
// Parameters:
//   - width: image width in pixels
//   - height: image height in pixels
//   - opts: variadic list of RasterizerBuilderOption functions
//
// Returns:
//   - Rasterizer: the rasterizer
func NewRasterizer(width, height int, opts ...RasterizerBuilderOption) Rasterizer {
	r := &rasterizer{
		mu:         &sync.Mutex{},
		width:      width,
		height:     height,
		scale:      MinScale,
		face:       basicfont.Face7x13,
		drawCursor: true,
		bands:      4,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.bands < 1 {
		r.bands = 1
	}
	r.ascent = r.face.Metrics().Ascent.Ceil()
	r.updateCell()
	r.pool = worker.NewDynamicWorkerPool(r.bands, 256, time.Second)
	return r
}

// updateCell recomputes the cell size from the face and scale. Caller must hold the mutex or own r.
func (r *rasterizer) updateCell() {
	adv, _ := r.face.GlyphAdvance('M')
	m := r.face.Metrics()
	r.cellW = adv.Ceil() * r.scale
	r.cellH = m.Height.Ceil() * r.scale
}

func (r *rasterizer) Grid() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width / r.cellW, r.height / r.cellH
}

func (r *rasterizer) Scale() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scale
}

func (r *rasterizer) SetScale(scale int) error {
	if scale < MinScale || scale > MaxScale {
		return fmt.Errorf("rasterizer: scale %d outside [%d, %d]", scale, MinScale, MaxScale)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scale = scale
	r.updateCell()
	return nil
}

func (r *rasterizer) Size() (int, int) {
	return r.width, r.height
}

func (r *rasterizer) Close() {
	r.pool.Stop()
}

func (r *rasterizer) Render(s Session) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	if s == nil {
		draw.Draw(img, img.Bounds(), image.Black, image.Point{}, draw.Src)
		return img
	}

	r.mu.Lock()
	scale, cellW, cellH := r.scale, r.cellW, r.cellH
	r.mu.Unlock()

	s.ReadGrid(func() {
		r.renderGrid(img, s, scale, cellW, cellH)
	})
	return img
}

// renderGrid fills img from the session grid. Caller holds the session's grid for reading.
func (r *rasterizer) renderGrid(img *image.RGBA, s Session, scale, cellW, cellH int) {
	draw.Draw(img, img.Bounds(), image.NewUniform(s.Background()), image.Point{}, draw.Src)

	cols, rows := s.Size()
	if fit := r.width / cellW; cols > fit {
		cols = fit
	}
	if fit := r.height / cellH; rows > fit {
		rows = fit
	}
	curX, curY := s.Cursor()

	// bands cover disjoint pixel rows, so they write to img without locking
	var wg sync.WaitGroup
	per := (rows + r.bands - 1) / r.bands
	for band := 0; band*per < rows; band++ {
		first, last := band*per, min((band+1)*per, rows)
		wg.Add(1)
		r.pool.SubmitTask(worker.Task{
			ID: band,
			Do: func() (any, error) {
				defer wg.Done()
				for y := first; y < last; y++ {
					r.drawRow(img, s, y, cols, scale, cellW, cellH, curX, curY)
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func (r *rasterizer) drawRow(img *image.RGBA, s Session, y, cols, scale, cellW, cellH, curX, curY int) {
	defaultBg := s.Background()
	py := y * cellH
	for x := 0; x < cols; {
		cell := s.Cell(x, y)
		fg, bg := cell.Fg, cell.Bg
		if r.drawCursor && x == curX && y == curY {
			fg, bg = bg, fg
		}

		px := x * cellW
		w := cell.Width * cellW
		if bg != defaultBg || (r.drawCursor && x == curX && y == curY) {
			draw.Draw(img, image.Rect(px, py, px+w, py+cellH), image.NewUniform(bg), image.Point{}, draw.Src)
		}
		if ch, _ := utf8.DecodeRuneInString(cell.Content); ch != ' ' && ch != utf8.RuneError {
			r.drawGlyph(img, ch, px, py, scale, fg)
		}
		x += cell.Width
	}
}

// drawGlyph draws the first rune of a cell at pixel (px, py), upscaling each glyph pixel to a
// scale × scale block.
func (r *rasterizer) drawGlyph(img *image.RGBA, ch rune, px, py, scale int, fg color.Color) {
	dot := fixed.P(0, r.ascent)
	dr, mask, maskp, _, ok := r.face.Glyph(dot, ch)
	if !ok {
		dr, mask, maskp, _, ok = r.face.Glyph(dot, '?')
		if !ok {
			return
		}
	}
	c := color.RGBAModel.Convert(fg).(color.RGBA)
	bounds := img.Bounds()
	for gy := dr.Min.Y; gy < dr.Max.Y; gy++ {
		for gx := dr.Min.X; gx < dr.Max.X; gx++ {
			_, _, _, a := mask.At(maskp.X+gx-dr.Min.X, maskp.Y+gy-dr.Min.Y).RGBA()
			if a == 0 {
				continue
			}
			for sy := range scale {
				for sx := range scale {
					x, y := px+gx*scale+sx, py+gy*scale+sy
					if image.Pt(x, y).In(bounds) {
						img.SetRGBA(x, y, c)
					}
				}
			}
		}
	}
}
