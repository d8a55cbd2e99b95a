package light

// LightBuilderOption is a function that configures a Light instance during construction.
type LightBuilderOption func(*lightImpl)

// WithPosition is an option builder that sets the world-space position of the light.
//
// Parameters:
//   - x: the x position component
//   - y: the y position component
//   - z: the z position component
//
// Returns:
//   - LightBuilderOption: a function that applies the position option to a lightImpl
func WithPosition(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.position = [3]float32{x, y, z}
	}
}

// WithType is an option builder that sets the light type.
//
// Parameters:
//   - lightType: point or directional
//
// Returns:
//   - LightBuilderOption: a function that applies the type option to a lightImpl
func WithType(lightType LightType) LightBuilderOption {
	return func(l *lightImpl) {
		l.lightType = lightType
	}
}
