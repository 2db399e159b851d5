// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"encoding/binary"
	"hash"
	"hash/fnv"

	"github.com/gogpu/gputypes"
)

// PipelineDescription is everything about a pass that determines its
// physical pipeline. Two passes with equal descriptions share a pipeline.
type PipelineDescription struct {
	VertexShader   ShaderID
	FragmentShader ShaderID

	// LayoutID is the identity of the descriptor layout, 0 for none.
	LayoutID uint64

	Vertex VertexBinding
	Config PipelineConfig

	ColorFormats []gputypes.TextureFormat
	ColorUsages  []gputypes.TextureUsage

	// DepthFormat is TextureFormatUndefined when the pass writes no depth.
	DepthFormat gputypes.TextureFormat
	DepthUsage  gputypes.TextureUsage
}

// Hash computes an FNV-1a hash over every field of the description.
//
// The hash includes:
//   - Shader ids and descriptor layout identity
//   - Vertex buffer layouts and attributes
//   - Blend, depth, cull, topology and push constant state
//   - Color and depth attachment formats and usages, in order
func (d *PipelineDescription) Hash() uint64 {
	h := fnv.New64a()

	hashWriteUint64(h, uint64(d.VertexShader))
	hashWriteUint64(h, uint64(d.FragmentShader))
	hashWriteUint64(h, d.LayoutID)

	//nolint:gosec // G115: vertex buffer count is bounded by GPU limits (< 16)
	hashWriteUint32(h, uint32(len(d.Vertex.Buffers)))
	for i := range d.Vertex.Buffers {
		layout := &d.Vertex.Buffers[i]
		hashWriteUint64(h, uint64(layout.ArrayStride))
		hashWriteUint32(h, uint32(layout.StepMode))
		//nolint:gosec // G115: attribute count is bounded by GPU limits (< 32)
		hashWriteUint32(h, uint32(len(layout.Attributes)))
		for j := range layout.Attributes {
			attr := &layout.Attributes[j]
			hashWriteUint32(h, uint32(attr.ShaderLocation))
			hashWriteUint32(h, uint32(attr.Format))
			hashWriteUint64(h, uint64(attr.Offset))
		}
	}

	cfg := &d.Config
	hashWriteBool(h, cfg.Blend)
	hashWriteBool(h, cfg.DepthTest)
	hashWriteBool(h, cfg.DepthWrite)
	hashWriteUint32(h, uint32(cfg.DepthCompare))
	hashWriteUint32(h, uint32(cfg.CullMode))
	hashWriteUint32(h, uint32(cfg.Topology))
	hashWriteUint32(h, cfg.PushConstantSize)
	hashWriteUint32(h, uint32(cfg.PushConstantStages))

	//nolint:gosec // G115: color target count is bounded by GPU limits (< 8)
	hashWriteUint32(h, uint32(len(d.ColorFormats)))
	for i, f := range d.ColorFormats {
		hashWriteUint32(h, uint32(f))
		var usage gputypes.TextureUsage
		if i < len(d.ColorUsages) {
			usage = d.ColorUsages[i]
		}
		hashWriteUint32(h, uint32(usage))
	}
	hashWriteUint32(h, uint32(d.DepthFormat))
	hashWriteUint32(h, uint32(d.DepthUsage))

	return h.Sum64()
}

// hashWriteUint32 writes a uint32 to the hash.
func hashWriteUint32(h hash.Hash64, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, _ = h.Write(buf[:])
}

// hashWriteUint64 writes a uint64 to the hash.
func hashWriteUint64(h hash.Hash64, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}

// hashWriteBool writes a bool to the hash.
func hashWriteBool(h hash.Hash64, v bool) {
	if v {
		_, _ = h.Write([]byte{1})
	} else {
		_, _ = h.Write([]byte{0})
	}
}
