// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import "fmt"

// TextureLayout is the state an attachment texture is in between passes.
type TextureLayout uint8

const (
	// LayoutUndefined is the layout of a freshly created or rebound texture.
	// Its contents may be discarded by the next transition.
	LayoutUndefined TextureLayout = iota

	// LayoutShaderRead makes the texture sampleable from shaders.
	LayoutShaderRead

	// LayoutColorAttachment makes the texture writable as a color attachment.
	LayoutColorAttachment

	// LayoutDepthAttachment makes the texture writable as a depth/stencil attachment.
	LayoutDepthAttachment
)

// String returns the layout name.
func (l TextureLayout) String() string {
	switch l {
	case LayoutUndefined:
		return "Undefined"
	case LayoutShaderRead:
		return "ShaderRead"
	case LayoutColorAttachment:
		return "ColorAttachment"
	case LayoutDepthAttachment:
		return "DepthAttachment"
	default:
		return fmt.Sprintf("TextureLayout(%d)", uint8(l))
	}
}

// PipelineStage is a bit set of GPU pipeline stages.
type PipelineStage uint32

const (
	StageTopOfPipe PipelineStage = 1 << iota
	StageFragmentShader
	StageEarlyFragmentTests
	StageLateFragmentTests
	StageColorAttachmentOutput
)

// Access is a bit set of memory access kinds.
type Access uint32

const (
	AccessShaderRead Access = 1 << iota
	AccessColorAttachmentRead
	AccessColorAttachmentWrite
	AccessDepthAttachmentRead
	AccessDepthAttachmentWrite
)

// TextureBarrier describes one layout transition together with the stages
// and memory accesses it synchronizes.
type TextureBarrier struct {
	OldLayout TextureLayout
	NewLayout TextureLayout

	SrcStage  PipelineStage
	DstStage  PipelineStage
	SrcAccess Access
	DstAccess Access
}

// BarrierFor returns the barrier that moves a texture from old to new.
// Work that used the texture in the old layout must finish before work
// using the new layout starts.
func BarrierFor(oldLayout, newLayout TextureLayout) TextureBarrier {
	srcStage, srcAccess := layoutScope(oldLayout)
	dstStage, dstAccess := layoutScope(newLayout)
	return TextureBarrier{
		OldLayout: oldLayout,
		NewLayout: newLayout,
		SrcStage:  srcStage,
		DstStage:  dstStage,
		SrcAccess: srcAccess,
		DstAccess: dstAccess,
	}
}

// layoutScope returns the stages and accesses that touch a texture while it
// is in the given layout.
func layoutScope(l TextureLayout) (PipelineStage, Access) {
	switch l {
	case LayoutShaderRead:
		return StageFragmentShader, AccessShaderRead
	case LayoutColorAttachment:
		return StageColorAttachmentOutput, AccessColorAttachmentRead | AccessColorAttachmentWrite
	case LayoutDepthAttachment:
		return StageEarlyFragmentTests | StageLateFragmentTests,
			AccessDepthAttachmentRead | AccessDepthAttachmentWrite
	default:
		return StageTopOfPipe, 0
	}
}

// needsTransition reports whether a texture in layout current has to be
// transitioned before use in layout target. An Undefined texture is always
// transitioned so its first use gets a defined layout.
func needsTransition(current, target TextureLayout) bool {
	return current != target || current == LayoutUndefined
}
