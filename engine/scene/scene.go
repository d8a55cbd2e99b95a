package scene

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-vrterm/engine/mesh"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/texture"
	"go.uber.org/zap"
)

// Scene is the fixed set of renderables viewed in VR: a lit grid floor below the viewer and the
// textured terminal screen in front of it, each with a static placement transform. The set never
// changes after construction.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Floor returns the floor renderable.
	//
	// Returns:
	//   - mesh.Renderable: the 24-vertex lit grid floor
	Floor() mesh.Renderable

	// Screen returns the terminal screen renderable.
	//
	// Returns:
	//   - mesh.TexturedRenderable: the 6-vertex textured quad
	Screen() mesh.TexturedRenderable

	// Renderables returns the renderables in draw order: floor, then screen.
	//
	// Returns:
	//   - []mesh.Renderable: a fresh slice of the scene's renderables
	Renderables() []mesh.Renderable

	// Draw draws every renderable in order into an eye pass. Drawing stops at the first error.
	//
	// Parameters:
	//   - pass: the active eye pass
	//   - lightEye: the light position in this eye's space
	//   - view: this eye's view matrix
	//   - projection: this eye's projection matrix
	//
	// Returns:
	//   - error: the first draw error
	Draw(pass renderer.RenderPass, lightEye [3]float32, view, projection []float32) error
}

type scene struct {
	mu *sync.Mutex

	name   string
	logger *zap.Logger

	shaderDir string
	floorY    float32
	screenZ   float32

	floor  mesh.Renderable
	screen mesh.TexturedRenderable
}

var _ Scene = &scene{}

// NewScene builds both programs once, uploads the floor and screen geometry and binds the
// screen texture. Any failure aborts construction; no partially built scene is returned.
//
// Parameters:
//   - r: the renderer that owns the GPU resources
//   - screenTexture: the texture the screen samples, created by the texture bridge
//   - options: variadic list of SceneBuilderOption functions
//
// Returns:
//   - Scene: the built scene
//   - error: a program, upload or binding error naming the failing step
func NewScene(r renderer.Renderer, screenTexture texture.Texture, options ...SceneBuilderOption) (Scene, error) {
	if screenTexture == nil {
		return nil, errors.New("scene: nil screen texture")
	}
	s := &scene{
		mu:      &sync.Mutex{},
		name:    "vrterm",
		logger:  zap.NewNop(),
		floorY:  -20,
		screenZ: -10,
	}
	for _, option := range options {
		option(s)
	}

	programOpts := []mesh.ProgramBuilderOption{mesh.WithProgramLogger(s.logger)}
	if s.shaderDir != "" {
		programOpts = append(programOpts, mesh.WithShaderDir(s.shaderDir))
	}
	lit, err := mesh.NewProgram(r, mesh.ProgramLitGrid, programOpts...)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", s.name, err)
	}
	textured, err := mesh.NewProgram(r, mesh.ProgramTexturedPassthrough, programOpts...)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", s.name, err)
	}

	floorGeometry, err := FloorGeometry()
	if err != nil {
		return nil, fmt.Errorf("scene %s: floor geometry: %w", s.name, err)
	}
	s.floor, err = mesh.NewRenderable(r, lit, floorGeometry, mesh.WithTranslation(0, s.floorY, 0))
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", s.name, err)
	}

	screenGeometry, err := ScreenGeometry()
	if err != nil {
		return nil, fmt.Errorf("scene %s: screen geometry: %w", s.name, err)
	}
	s.screen, err = mesh.NewTexturedRenderable(r, textured, screenGeometry, screenTexture, mesh.WithTranslation(0, 0, s.screenZ))
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", s.name, err)
	}

	s.logger.Info("scene ready",
		zap.String("scene", s.name),
		zap.Int("floor_vertices", s.floor.VertexCount()),
		zap.Int("screen_vertices", s.screen.VertexCount()),
	)
	return s, nil
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Floor() mesh.Renderable {
	return s.floor
}

func (s *scene) Screen() mesh.TexturedRenderable {
	return s.screen
}

func (s *scene) Renderables() []mesh.Renderable {
	return []mesh.Renderable{s.floor, s.screen}
}

func (s *scene) Draw(pass renderer.RenderPass, lightEye [3]float32, view, projection []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.floor.Draw(pass, lightEye, view, projection); err != nil {
		return err
	}
	return s.screen.Draw(pass, lightEye, view, projection)
}
