// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"slices"

	"github.com/gogpu/gputypes"
)

// RenderPassID is a stable index into the graph's pass table.
// Registration order is not execution order; see FrameGraph.BakedOrder.
type RenderPassID int

// ShaderStages is a bit set of shader stages that see push constants.
type ShaderStages uint32

const (
	ShaderStageVertex ShaderStages = 1 << iota
	ShaderStageFragment
)

// PipelineConfig is the fixed-function state of a pass pipeline.
type PipelineConfig struct {
	// Blend enables premultiplied alpha blending on every color target.
	Blend bool

	DepthTest  bool
	DepthWrite bool

	// DepthCompare is used when DepthTest is set. The zero value selects
	// CompareFunctionLess.
	DepthCompare gputypes.CompareFunction

	CullMode gputypes.CullMode

	// Topology defaults to a triangle list when zero.
	Topology gputypes.PrimitiveTopology

	PushConstantSize   uint32
	PushConstantStages ShaderStages
}

// VertexBinding describes the vertex buffers a pipeline consumes.
type VertexBinding struct {
	Buffers []gputypes.VertexBufferLayout
}

// ClearDepth holds the depth/stencil clear values of a pass.
type ClearDepth struct {
	Depth   float32
	Stencil uint32
}

// Default clear values used when a pass does not set its own.
var (
	DefaultClearColor = gputypes.Color{R: 0, G: 0, B: 0, A: 1}
	DefaultClearDepth = ClearDepth{Depth: 1, Stencil: 0}
)

// RenderPassContext is handed to a pass callback during Execute.
type RenderPassContext struct {
	// Pass is the name of the executing pass.
	Pass string

	Pipeline      Pipeline
	CommandBuffer CommandBuffer
	Target        RenderTarget
}

// ExecuteFunc records the draw calls of a pass.
type ExecuteFunc func(ctx RenderPassContext) error

// RenderPass declares what a pass reads, writes and draws with. It is a
// value type: every builder method returns a modified copy and nothing is
// resolved until FrameGraph.Bake.
//
//	pass := framegraph.NewRenderPass("lighting").
//	    ReadColor(albedo, normals).
//	    ReadDepth(depth).
//	    WriteColor(hdr).
//	    Shaders(fullscreenVS, lightingFS).
//	    OnExecute(drawFullscreen)
type RenderPass struct {
	Name string

	ReadColors  []AttachmentID
	WriteColors []AttachmentID

	// ReadDepthAttachment and WriteDepthAttachment are InvalidAttachment
	// when unused.
	ReadDepthAttachment  AttachmentID
	WriteDepthAttachment AttachmentID

	// ClearColorValue and ClearDepthValue are nil when the defaults apply.
	ClearColorValue *gputypes.Color
	ClearDepthValue *ClearDepth

	VertexShader   ShaderID
	FragmentShader ShaderID

	DescriptorLayout DescriptorLayout
	Vertex           VertexBinding
	PipelineConfig   PipelineConfig

	// PipelineOverrideValue, when set, is used verbatim and skips dedup.
	// It is borrowed: the graph never releases it.
	PipelineOverrideValue Pipeline

	// RenderTargetOverrideValue, when set, replaces the render target the
	// graph would create. It is borrowed: the graph never releases it.
	RenderTargetOverrideValue RenderTarget

	Execute ExecuteFunc
}

// NewRenderPass returns an empty pass with both depth slots unused.
func NewRenderPass(name string) RenderPass {
	return RenderPass{
		Name:                 name,
		ReadDepthAttachment:  InvalidAttachment,
		WriteDepthAttachment: InvalidAttachment,
	}
}

// ReadColor adds color attachments the pass samples from.
func (p RenderPass) ReadColor(ids ...AttachmentID) RenderPass {
	p.ReadColors = slices.Concat(p.ReadColors, ids)
	return p
}

// WriteColor adds color attachments the pass renders into. The order of the
// ids is the order of the pipeline color targets.
func (p RenderPass) WriteColor(ids ...AttachmentID) RenderPass {
	p.WriteColors = slices.Concat(p.WriteColors, ids)
	return p
}

// ReadDepth sets the depth attachment the pass samples from.
func (p RenderPass) ReadDepth(id AttachmentID) RenderPass {
	p.ReadDepthAttachment = id
	return p
}

// WriteDepth sets the depth attachment the pass renders into.
func (p RenderPass) WriteDepth(id AttachmentID) RenderPass {
	p.WriteDepthAttachment = id
	return p
}

// Shaders sets the vertex and fragment shaders.
func (p RenderPass) Shaders(vertex, fragment ShaderID) RenderPass {
	p.VertexShader = vertex
	p.FragmentShader = fragment
	return p
}

// Layout sets the descriptor set layout.
func (p RenderPass) Layout(layout DescriptorLayout) RenderPass {
	p.DescriptorLayout = layout
	return p
}

// VertexBinding sets the vertex buffer layouts.
func (p RenderPass) VertexBinding(buffers ...gputypes.VertexBufferLayout) RenderPass {
	p.Vertex = VertexBinding{Buffers: slices.Clone(buffers)}
	return p
}

// Config sets the fixed-function pipeline state.
func (p RenderPass) Config(cfg PipelineConfig) RenderPass {
	p.PipelineConfig = cfg
	return p
}

// ClearColor sets the color every color attachment is cleared to.
func (p RenderPass) ClearColor(c gputypes.Color) RenderPass {
	p.ClearColorValue = &c
	return p
}

// ClearDepth sets the depth/stencil clear values.
func (p RenderPass) ClearDepth(depth float32, stencil uint32) RenderPass {
	p.ClearDepthValue = &ClearDepth{Depth: depth, Stencil: stencil}
	return p
}

// PipelineOverride makes the pass use pipeline as is.
func (p RenderPass) PipelineOverride(pipeline Pipeline) RenderPass {
	p.PipelineOverrideValue = pipeline
	return p
}

// RenderTargetOverride makes the pass render into rt instead of a
// graph-created target.
func (p RenderPass) RenderTargetOverride(rt RenderTarget) RenderPass {
	p.RenderTargetOverrideValue = rt
	return p
}

// OnExecute sets the callback that records the pass.
func (p RenderPass) OnExecute(fn ExecuteFunc) RenderPass {
	p.Execute = fn
	return p
}

// reads returns every attachment the pass reads, colors first.
func (p *RenderPass) reads() []AttachmentID {
	ids := slices.Clone(p.ReadColors)
	if p.ReadDepthAttachment.Valid() {
		ids = append(ids, p.ReadDepthAttachment)
	}
	return ids
}

// writes returns every attachment the pass writes, colors first.
func (p *RenderPass) writes() []AttachmentID {
	ids := slices.Clone(p.WriteColors)
	if p.WriteDepthAttachment.Valid() {
		ids = append(ids, p.WriteDepthAttachment)
	}
	return ids
}

func (p *RenderPass) clearColor() gputypes.Color {
	if p.ClearColorValue != nil {
		return *p.ClearColorValue
	}
	return DefaultClearColor
}

func (p *RenderPass) clearDepth() ClearDepth {
	if p.ClearDepthValue != nil {
		return *p.ClearDepthValue
	}
	return DefaultClearDepth
}

// RenderPassInstance holds the physical objects a pass resolved to in the
// last Bake.
type RenderPassInstance struct {
	Pipeline       Pipeline
	VertexShader   Shader
	FragmentShader Shader
	RenderTarget   RenderTarget

	// PipelineHash is the dedup key of Pipeline, zero for overrides.
	PipelineHash uint64

	// OwnsTarget is true when the graph created RenderTarget.
	OwnsTarget bool
}
