package bind_group_provider

import "github.com/Carmen-Shannon/oxy-vrterm/common"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithVertexBuffer assigns a vertex buffer to a slot.
//
// Parameters:
//   - slot: the vertex buffer slot
//   - buf: the buffer handle
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffer for the slot
func WithVertexBuffer(slot int, buf common.BufferHandle) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.vertexBuffers[slot] = buf
	}
}

// WithUniformBuffer sets the per-draw uniform buffer.
//
// Parameters:
//   - buf: the buffer handle
//
// Returns:
//   - BindGroupProviderOption: a function that sets the uniform buffer
func WithUniformBuffer(buf common.BufferHandle) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.uniformBuffer = buf
	}
}

// WithBindGroup assigns a bind group to a group index.
//
// Parameters:
//   - group: the bind group index
//   - bg: the bind group handle
//
// Returns:
//   - BindGroupProviderOption: a function that sets the bind group for the index
func WithBindGroup(group int, bg common.BindGroupHandle) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.bindGroups[group] = bg
	}
}

// WithVertexCount sets the number of vertices a draw issues.
func WithVertexCount(n int) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.vertexCount = n
	}
}
