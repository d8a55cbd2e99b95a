package terminal

// RasterizerBuilderOption is a functional option for configuring a Rasterizer.
type RasterizerBuilderOption func(*rasterizer)

// WithScale sets the initial glyph scale. Values outside [MinScale, MaxScale] are clamped.
//
// Parameters:
//   - scale: integer upscale of the 7×13 face
//
// Returns:
//   - RasterizerBuilderOption: option function to apply
func WithScale(scale int) RasterizerBuilderOption {
	return func(r *rasterizer) {
		r.scale = max(MinScale, min(scale, MaxScale))
	}
}

// WithBands sets how many row bands, and pool workers, a frame is split into.
//
// Parameters:
//   - n: band count, at least 1
//
// Returns:
//   - RasterizerBuilderOption: option function to apply
func WithBands(n int) RasterizerBuilderOption {
	return func(r *rasterizer) {
		r.bands = n
	}
}

// WithCursor toggles drawing the cursor as a reversed cell.
//
// Parameters:
//   - enabled: whether the cursor is drawn
//
// Returns:
//   - RasterizerBuilderOption: option function to apply
func WithCursor(enabled bool) RasterizerBuilderOption {
	return func(r *rasterizer) {
		r.drawCursor = enabled
	}
}
