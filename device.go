// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"github.com/gogpu/gputypes"
)

// Device is the GPU resource factory the frame graph allocates from.
//
// The graph RECEIVES a device, it never creates one. Implementations are
// expected to block the caller until the resource exists. See
// backend/native for the HAL implementation.
type Device interface {
	// CreateTexture allocates a texture described by desc. The returned
	// texture is owned by the caller and released with DestroyTexture.
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// CreateRenderTarget binds attachment textures into something a pass
	// can draw into with desc.Pipeline.
	CreateRenderTarget(desc RenderTargetDescriptor) (RenderTarget, error)

	// DestroyTexture releases a texture created by CreateTexture.
	DestroyTexture(t Texture)

	// DestroyRenderTarget releases a render target created by CreateRenderTarget.
	// The attachment textures are not released.
	DestroyRenderTarget(rt RenderTarget)
}

// TextureDescriptor describes a texture the graph asks the Device for.
type TextureDescriptor struct {
	// Label is an optional debug label.
	Label string

	Width  uint32
	Height uint32

	// Layers is the array layer count. Use 1 for regular 2D textures.
	Layers uint32

	// MipLevels is the number of mip levels. Use 1 for no mipmaps.
	MipLevels uint32

	Format gputypes.TextureFormat
	Usage  gputypes.TextureUsage
}

// RenderTargetDescriptor describes a render target the graph asks the
// Device for. All attachments share Width and Height.
type RenderTargetDescriptor struct {
	Label    string
	Pipeline Pipeline

	// Colors are in pipeline color target order.
	Colors []Texture

	// Depth is nil when the pass writes no depth.
	Depth Texture

	// Width and Height are 1 when the pass writes no attachment.
	Width  uint32
	Height uint32
}

// Texture is a physical GPU image with a tracked layout.
type Texture interface {
	Width() uint32
	Height() uint32
	Format() gputypes.TextureFormat

	// Layout returns the layout the texture was last transitioned to.
	Layout() TextureLayout

	// Transition records a layout change. Implementations update the value
	// returned by Layout before returning.
	Transition(barrier TextureBarrier) error
}

// RenderTarget is the physical set of attachments a pass renders into.
type RenderTarget interface {
	// BeginFrame starts recording a render pass that clears the attachments
	// to the given values and binds pipeline.
	BeginFrame(pipeline Pipeline, clearColor gputypes.Color, clearDepth ClearDepth) (CommandBuffer, error)

	// EndFrame finishes the pass started by BeginFrame and submits it.
	EndFrame() error
}

// CommandBuffer is the recording handle a pass callback issues draws into.
// Backends expose their native encoder through a concrete type.
type CommandBuffer interface {
	// Label returns the debug label of the recording.
	Label() string
}

// Pipeline is a physical graphics pipeline.
type Pipeline interface {
	Label() string
}

// Shader is a compiled shader module.
type Shader interface {
	ID() ShaderID
}

// ShaderID identifies a shader registered in a ShaderCache.
type ShaderID uint64

// InvalidShader is the zero ShaderID. Shader caches never hand it out.
const InvalidShader ShaderID = 0

// PipelineID identifies a pipeline registered in a PipelineCache.
type PipelineID uint64

// InvalidPipeline is the zero PipelineID. Pipeline caches never hand it out.
const InvalidPipeline PipelineID = 0

// ShaderCache resolves shader ids to compiled shader modules.
type ShaderCache interface {
	Shader(id ShaderID) (Shader, error)
}

// DescriptorLayout is a descriptor set (bind group) layout. Two layouts
// are considered identical for pipeline dedup when their LayoutID matches.
type DescriptorLayout interface {
	LayoutID() uint64
}

// PipelineRequest carries everything a PipelineCache needs to build a
// physical pipeline for a pass.
type PipelineRequest struct {
	Label          string
	VertexShader   Shader
	FragmentShader Shader

	// Layout may be nil for pipelines without bindings.
	Layout DescriptorLayout

	VertexBinding VertexBinding
	ColorFormats  []gputypes.TextureFormat

	// DepthFormat is TextureFormatUndefined when the pass writes no depth.
	DepthFormat gputypes.TextureFormat

	Config PipelineConfig
}

// PipelineCache builds and owns physical pipelines.
type PipelineCache interface {
	RegisterPipeline(req PipelineRequest) (PipelineID, error)
	Pipeline(id PipelineID) (Pipeline, error)
}
