package bind_group_provider

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-vrterm/common"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// The following handles refer to GPU resources owned by the renderer backend. They are
	// assigned once at construction and never change afterwards.

	// vertexBuffers holds one buffer per attribute, keyed by vertex buffer slot.
	vertexBuffers map[int]common.BufferHandle
	// uniformBuffer is the per-draw uniform block buffer.
	uniformBuffer common.BufferHandle
	// bindGroups holds the bind groups to set for a draw, keyed by group index.
	bindGroups map[int]common.BindGroupHandle
	// vertexCount is the number of vertices issued by a non-indexed draw.
	vertexCount int
}

// BindGroupProvider describes the GPU resources a drawable needs for a draw call: its vertex
// buffers by slot, its uniform buffer and its bind groups by group index. The Renderable creates
// the resources through the Renderer, stores the handles in a provider and replays them in slot
// and group order on every draw.
type BindGroupProvider interface {
	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// VertexBuffer returns the buffer bound at a vertex buffer slot.
	//
	// Parameters:
	//   - slot: the vertex buffer slot
	//
	// Returns:
	//   - common.BufferHandle: the buffer, or the zero handle if the slot is unused
	VertexBuffer(slot int) common.BufferHandle

	// VertexSlots returns the occupied vertex buffer slots in ascending order.
	//
	// Returns:
	//   - []int: sorted slot indices
	VertexSlots() []int

	// UniformBuffer returns the per-draw uniform buffer.
	//
	// Returns:
	//   - common.BufferHandle: the uniform buffer, or the zero handle if none
	UniformBuffer() common.BufferHandle

	// BindGroup returns the bind group for a group index.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - common.BindGroupHandle: the bind group, or the zero handle if none
	BindGroup(group int) common.BindGroupHandle

	// Groups returns the group indices that have a bind group, in ascending order.
	//
	// Returns:
	//   - []int: sorted group indices
	Groups() []int

	// VertexCount returns the number of vertices to draw.
	//
	// Returns:
	//   - int: the vertex count
	VertexCount() int
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a provider from a set of handle options.
//
// Parameters:
//   - label: debug label
//   - opts: BindGroupProviderOption functions assigning the handles
//
// Returns:
//   - BindGroupProvider: the configured provider
func NewBindGroupProvider(label string, opts ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:         label,
		vertexBuffers: make(map[int]common.BufferHandle),
		bindGroups:    make(map[int]common.BindGroupHandle),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) VertexBuffer(slot int) common.BufferHandle {
	return p.vertexBuffers[slot]
}

func (p *bindGroupProvider) VertexSlots() []int {
	return sortedKeys(p.vertexBuffers)
}

func (p *bindGroupProvider) UniformBuffer() common.BufferHandle {
	return p.uniformBuffer
}

func (p *bindGroupProvider) BindGroup(group int) common.BindGroupHandle {
	return p.bindGroups[group]
}

func (p *bindGroupProvider) Groups() []int {
	return sortedKeys(p.bindGroups)
}

func (p *bindGroupProvider) VertexCount() int {
	return p.vertexCount
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
