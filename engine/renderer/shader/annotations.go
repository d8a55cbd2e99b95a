// annotations.go defines the annotation types, argument constants, and parser for the
// WGSL shader pre-processor. Annotations are single-line WGSL comments prefixed with
// @oxy: that drive struct injection, uniform declaration and provider registration.
// The parsed results are stored as Annotation values and consumed by the mesh package to
// locate the uniform and texture groups of a program without hard-coded indices.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an annotation within a WGSL comment line.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered struct definition
	// at the annotation site. It produces no declaration.
	//
	// Syntax: //@oxy:include <struct_type>
	//
	// Example: //@oxy:include mesh_uniform
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a WGSL @group/@binding variable declaration
	// and records a declaration carrying the group, binding and struct type.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@oxy:group 0 0 storage_uniform u_mesh mesh_uniform
	AnnotationTypeBindingGroup AnnotationType = "group"

	// AnnotationTypeProvider records which provider owns a hand-written binding (textures
	// and samplers) without generating WGSL. An optional role names the binding's purpose.
	//
	// Syntax:
	//   //@oxy:provider <group> <binding> <provider_identity>
	//   //@oxy:provider <group> <binding> <provider_identity> <binding_role>
	//
	// Example: //@oxy:provider 1 0 screen texture
	AnnotationTypeProvider AnnotationType = "provider"
)

// Annotation represents a single parsed @oxy: annotation from a WGSL shader source line.
type Annotation struct {
	// Type identifies which annotation was parsed (include, group, or provider).
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include:  [0] = struct type key (e.g. "mesh_uniform")
	//   - group:    [0] = address space, [1] = var name, [2] = WGSL type key
	//   - provider: [0] = provider identity (e.g. "screen"), [1] = binding role (optional)
	Args []AnnotationArg

	// Line is the 1-based line number in the original WGSL source. Used for error reporting.
	Line int

	// Group is the @group index for group and provider annotations. Nil for include annotations.
	Group *int

	// Binding is the @binding index for group and provider annotations. Nil for include annotations.
	Binding *int
}

// AnnotationArg is a typed string constant used as an argument in annotations.
type AnnotationArg string

// Struct type arguments. Each maps to a WGSL struct embedded by the model package.
const (
	// AnnotationArgMeshUniform identifies the per-draw MeshUniform struct.
	// Source: engine/model/assets/mesh_uniform.wgsl
	AnnotationArgMeshUniform AnnotationArg = "mesh_uniform"

	// annotationArgLitVertex identifies the LitVertexInput struct (position, normal, color).
	// Source: engine/model/assets/lit_vertex.wgsl
	annotationArgLitVertex AnnotationArg = "lit_vertex"

	// annotationArgTexturedVertex identifies the TexturedVertexInput struct (lit vertex + texcoord).
	// Source: engine/model/assets/textured_vertex.wgsl
	annotationArgTexturedVertex AnnotationArg = "textured_vertex"

	// annotationArgLitVaryings identifies the LitVaryings inter-stage struct.
	// Source: engine/model/assets/lit_varyings.wgsl
	annotationArgLitVaryings AnnotationArg = "lit_varyings"

	// annotationArgTexturedVaryings identifies the TexturedVaryings inter-stage struct.
	// Source: engine/model/assets/textured_varyings.wgsl
	annotationArgTexturedVaryings AnnotationArg = "textured_varyings"
)

// Address space arguments.
const (
	// annotationArgStorageTypeUniform maps to var<uniform> in WGSL.
	annotationArgStorageTypeUniform AnnotationArg = "storage_uniform"
)

// Provider identity arguments.
const (
	// AnnotationArgScreen identifies the screen texture provider (terminal texture + sampler).
	AnnotationArgScreen AnnotationArg = "screen"
)

// Binding role arguments for provider annotations.
const (
	// AnnotationArgTexture identifies the sampled texture binding of a provider group.
	AnnotationArgTexture AnnotationArg = "texture"

	// AnnotationArgSampler identifies the sampler binding paired with the texture.
	AnnotationArgSampler AnnotationArg = "sampler"
)

var validStructTypes = []AnnotationArg{
	AnnotationArgMeshUniform,
	annotationArgLitVertex,
	annotationArgTexturedVertex,
	annotationArgLitVaryings,
	annotationArgTexturedVaryings,
}

var validAddressSpaces = []AnnotationArg{
	annotationArgStorageTypeUniform,
}

var validProviderIdentities = []AnnotationArg{
	AnnotationArgMeshUniform,
	AnnotationArgScreen,
}

var validBindingRoles = []AnnotationArg{
	AnnotationArgTexture,
	AnnotationArgSampler,
}

// parseAnnotation attempts to parse a single line of WGSL source as an @oxy: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case annotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy include annotation", lineNum, args[1])
		}
		return &Annotation{
			Type: annotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case AnnotationTypeBindingGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group annotation requires group, binding, address space, var name and struct type", lineNum)
		}
		group, binding, err := parseGroupBinding(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy group annotation", lineNum, args[3])
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[5])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy group annotation", lineNum, args[5])
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil
	case AnnotationTypeProvider:
		if len(args) < 4 || len(args) > 5 {
			return nil, fmt.Errorf("line %d: @oxy provider annotation requires group, binding, provider identity and an optional role", lineNum)
		}
		group, binding, err := parseGroupBinding(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(validProviderIdentities, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown provider identity %q in @oxy provider annotation", lineNum, args[3])
		}
		providerArgs := []AnnotationArg{AnnotationArg(args[3])}
		if len(args) == 5 {
			if !slices.Contains(validBindingRoles, AnnotationArg(args[4])) {
				return nil, fmt.Errorf("line %d: unknown binding role %q in @oxy provider annotation", lineNum, args[4])
			}
			providerArgs = append(providerArgs, AnnotationArg(args[4]))
		}
		return &Annotation{
			Type:    AnnotationTypeProvider,
			Args:    providerArgs,
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}

func parseGroupBinding(groupArg, bindingArg string, lineNum int) (int, int, error) {
	group, err := strconv.Atoi(groupArg)
	if err != nil {
		return 0, 0, fmt.Errorf("line %d: invalid group number %q: %w", lineNum, groupArg, err)
	}
	binding, err := strconv.Atoi(bindingArg)
	if err != nil {
		return 0, 0, fmt.Errorf("line %d: invalid binding number %q: %w", lineNum, bindingArg, err)
	}
	return group, binding, nil
}
