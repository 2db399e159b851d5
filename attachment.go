// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"github.com/gogpu/gputypes"
)

// AttachmentID is a stable index into the graph's attachment table.
// Ids are handed out in increasing order and never reused.
type AttachmentID int

// InvalidAttachment marks an unused optional attachment slot.
const InvalidAttachment AttachmentID = -1

// Valid reports whether id refers to an attachment slot at all.
// It does not check that the attachment is registered.
func (id AttachmentID) Valid() bool {
	return id >= 0
}

// AttachmentDescription is a logical image used by passes.
type AttachmentDescription struct {
	// Name is a debug label used in logs, errors and texture labels.
	Name string

	Format gputypes.TextureFormat
	Width  uint32
	Height uint32

	// Layers defaults to 1 when zero.
	Layers uint32

	// MipLevels defaults to 1 when zero.
	MipLevels uint32

	// Override is an externally owned texture to use instead of allocating
	// one (for example the current swapchain image). The graph never
	// creates or destroys it.
	Override Texture
}

// AttachmentInstance is the physical backing of an attachment after Bake.
type AttachmentInstance struct {
	Texture Texture

	// Owned is true when the graph created Texture and will destroy it.
	Owned bool

	Width     uint32
	Height    uint32
	Layers    uint32
	MipLevels uint32
}

// AttachmentLifetime is the span of baked order positions in which an
// attachment is read or written. Both ends are inclusive.
type AttachmentLifetime struct {
	FirstUse int
	LastUse  int
}

// IsDepthFormat reports whether f is a depth or depth/stencil format.
func IsDepthFormat(f gputypes.TextureFormat) bool {
	switch f {
	case gputypes.TextureFormatDepth16Unorm,
		gputypes.TextureFormatDepth24Plus,
		gputypes.TextureFormatDepth24PlusStencil8,
		gputypes.TextureFormatDepth32Float,
		gputypes.TextureFormatDepth32FloatStencil8:
		return true
	default:
		return false
	}
}

// HasStencil reports whether f carries a stencil aspect.
func HasStencil(f gputypes.TextureFormat) bool {
	return f == gputypes.TextureFormatDepth24PlusStencil8 ||
		f == gputypes.TextureFormatDepth32FloatStencil8
}

// attachmentUsage returns the usage flags for a graph-allocated texture.
// Every attachment is both rendered to and sampled by later passes.
func attachmentUsage() gputypes.TextureUsage {
	return gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding
}

func orOne(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	return v
}
