package shader

import (
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// uniformPrimitives gives the size and alignment of the WGSL types allowed in a uniform block.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var uniformPrimitives = map[string]wgslTypeLayout{
	"f32":         {4, 4},
	"i32":         {4, 4},
	"u32":         {4, 4},
	"vec2f":       {8, 8},
	"vec2<f32>":   {8, 8},
	"vec3f":       {12, 16},
	"vec3<f32>":   {12, 16},
	"vec4f":       {16, 16},
	"vec4<f32>":   {16, 16},
	"mat3x3f":     {48, 16},
	"mat3x3<f32>": {48, 16},
	"mat4x4f":     {64, 16},
	"mat4x4<f32>": {64, 16},
}

// alignUp rounds value up to a multiple of align, which is a power of two.
func alignUp(align, value uint64) uint64 {
	if align == 0 {
		return value
	}
	return (value + align - 1) &^ (align - 1)
}

// typeLayout resolves a primitive, an already laid out struct, or a fixed-size array of either.
func typeLayout(typeName string, structs map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	if l, ok := uniformPrimitives[typeName]; ok {
		return l, true
	}
	if l, ok := structs[typeName]; ok {
		return l, true
	}

	body, ok := strings.CutPrefix(typeName, "array<")
	if !ok {
		return wgslTypeLayout{}, false
	}
	body, ok = strings.CutSuffix(body, ">")
	if !ok {
		return wgslTypeLayout{}, false
	}
	comma := strings.LastIndexByte(body, ',')
	if comma < 0 {
		// runtime-sized arrays cannot live in a uniform block
		return wgslTypeLayout{}, false
	}
	elem, ok := typeLayout(strings.TrimSpace(body[:comma]), structs)
	if !ok {
		return wgslTypeLayout{}, false
	}
	n, err := strconv.ParseUint(strings.TrimSpace(body[comma+1:]), 10, 64)
	if err != nil {
		return wgslTypeLayout{}, false
	}
	// uniform array elements are padded to 16 bytes
	stride := alignUp(max(elem.align, 16), elem.size)
	return wgslTypeLayout{n * stride, max(elem.align, 16)}, true
}

// layoutStructs lays out every struct whose fields resolve. Structs may reference each other in
// any order, so passes repeat until one makes no progress.
func layoutStructs(structs []parsedStruct) map[string]wgslTypeLayout {
	done := make(map[string]wgslTypeLayout, len(structs))
	pending := structs
	for len(pending) > 0 {
		var again []parsedStruct
		for _, ps := range pending {
			if l, ok := layoutStruct(ps, done); ok {
				done[ps.name] = l
			} else {
				again = append(again, ps)
			}
		}
		if len(again) == len(pending) {
			break
		}
		pending = again
	}
	return done
}

func layoutStruct(ps parsedStruct, structs map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	var size uint64
	align := uint64(1)
	for _, f := range ps.fields {
		if f.isBuiltin {
			continue
		}
		fl, ok := typeLayout(f.typeName, structs)
		if !ok {
			return wgslTypeLayout{}, false
		}
		size = alignUp(fl.align, size) + fl.size
		align = max(align, fl.align)
	}
	return wgslTypeLayout{alignUp(align, size), align}, true
}

// classifyResource builds the layout entry for one @group/@binding declaration. Only uniform
// buffers, filtering samplers and 2D sampled textures are recognized; any other resource comes
// back with no binding type set, which the renderer rejects when the layout is created.
func classifyResource(binding uint32, visibility wgpu.ShaderStage, addressSpace, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
	}

	switch {
	case addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case addressSpace != "":
	case typeName == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	default:
		base, param, _ := strings.Cut(typeName, "<")
		if base != "texture_2d" {
			break
		}
		entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
		entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
		if st, ok := wgslSampleTypeMap[strings.TrimSpace(strings.TrimSuffix(param, ">"))]; ok {
			entry.Texture.SampleType = st
		}
	}
	return entry
}

// stripComments blanks out // line comments and nested /* */ block comments. Newlines are kept
// so line-based parsing still lines up.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		c := source[i]
		var next byte
		if i+1 < len(source) {
			next = source[i+1]
		}
		switch {
		case c == '/' && next == '*':
			depth++
			i++
		case c == '*' && next == '/' && depth > 0:
			depth--
			i++
		case depth > 0:
			if c == '\n' {
				sb.WriteByte(c)
			}
		case c == '/' && next == '/':
			for i < len(source) && source[i] != '\n' {
				i++
			}
			if i < len(source) {
				sb.WriteByte('\n')
			}
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// isVertexInputStruct reports whether ps carries @location fields and no @builtin fields, which
// tells a vertex input apart from a vertex output.
func isVertexInputStruct(ps parsedStruct) bool {
	located := false
	for _, f := range ps.fields {
		if f.isBuiltin {
			return false
		}
		located = located || f.location >= 0
	}
	return located
}

// buildAttributeBufferLayout gives one attribute its own tightly packed buffer.
func buildAttributeBufferLayout(f parsedField) (wgpu.VertexBufferLayout, bool) {
	info, ok := wgslVertexFormatMap[f.typeName]
	if !ok {
		return wgpu.VertexBufferLayout{}, false
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: info.size,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{{
			Format:         info.format,
			ShaderLocation: uint32(f.location),
		}},
	}, true
}

// splitAtTopLevelCommas splits struct bodies at commas outside angle brackets, so
// array<vec4f, 4> stays one field.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := range len(s) {
		switch s[i] {
		case '<':
			depth++
		case '>':
			depth = max(0, depth-1)
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
