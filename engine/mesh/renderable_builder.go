package mesh

// RenderableBuilderOption is a functional option used to configure a Renderable during construction.
type RenderableBuilderOption func(*renderable)

// WithLabel overrides the geometry label used for GPU resource names and error messages.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - RenderableBuilderOption: a function that sets the label
func WithLabel(label string) RenderableBuilderOption {
	return func(r *renderable) {
		if label != "" {
			r.label = label
		}
	}
}

// WithTranslation places the renderable at (x, y, z) in world space. The model matrix is the
// identity translated by this offset and never changes afterwards.
//
// Parameters:
//   - x, y, z: the world-space offset
//
// Returns:
//   - RenderableBuilderOption: a function that sets the translation
func WithTranslation(x, y, z float32) RenderableBuilderOption {
	return func(r *renderable) {
		r.translation = [3]float32{x, y, z}
	}
}
