// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph"
)

// Pipeline is a HAL render pipeline together with the layout it was built
// with.
type Pipeline struct {
	id     framegraph.PipelineID
	label  string
	raw    hal.RenderPipeline
	layout hal.PipelineLayout
	req    framegraph.PipelineRequest
}

// Label implements framegraph.Pipeline.
func (p *Pipeline) Label() string { return p.label }

// ID returns the id the pipeline was registered under.
func (p *Pipeline) ID() framegraph.PipelineID { return p.id }

// Raw returns the HAL render pipeline.
func (p *Pipeline) Raw() hal.RenderPipeline { return p.raw }

// Request returns the request the pipeline was built from.
func (p *Pipeline) Request() framegraph.PipelineRequest { return p.req }

// PipelineCache builds HAL render pipelines for frame graph passes and
// owns them until Destroy. Deduplication happens in the frame graph, so
// every RegisterPipeline call creates a new pipeline.
type PipelineCache struct {
	device hal.Device
	log    *slog.Logger

	pipelines map[framegraph.PipelineID]*Pipeline
	nextID    framegraph.PipelineID
}

func newPipelineCache(device hal.Device, log *slog.Logger) *PipelineCache {
	return &PipelineCache{
		device:    device,
		log:       log,
		pipelines: make(map[framegraph.PipelineID]*Pipeline),
	}
}

// RegisterPipeline implements framegraph.PipelineCache. Shaders must come
// from a ShaderCache and the layout, when set, from CreateDescriptorLayout.
//
// Push constant settings are ignored: the HAL pipeline layout has no
// push constant ranges.
func (c *PipelineCache) RegisterPipeline(req framegraph.PipelineRequest) (framegraph.PipelineID, error) {
	vs, ok := req.VertexShader.(*Shader)
	if !ok {
		return framegraph.InvalidPipeline, fmt.Errorf("pipeline %q vertex shader: %w", req.Label, ErrForeignResource)
	}
	fs, ok := req.FragmentShader.(*Shader)
	if !ok {
		return framegraph.InvalidPipeline, fmt.Errorf("pipeline %q fragment shader: %w", req.Label, ErrForeignResource)
	}

	var bindLayouts []hal.BindGroupLayout
	if req.Layout != nil {
		l, ok := req.Layout.(*DescriptorLayout)
		if !ok || l.raw == nil {
			return framegraph.InvalidPipeline, fmt.Errorf("pipeline %q layout: %w", req.Label, ErrForeignResource)
		}
		bindLayouts = append(bindLayouts, l.raw)
	}

	layout, err := c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            req.Label + "_layout",
		BindGroupLayouts: bindLayouts,
	})
	if err != nil {
		return framegraph.InvalidPipeline, fmt.Errorf("create pipeline layout %q: %w", req.Label, err)
	}

	raw, err := c.device.CreateRenderPipeline(pipelineDescriptor(req, layout, vs, fs))
	if err != nil {
		c.device.DestroyPipelineLayout(layout)
		return framegraph.InvalidPipeline, fmt.Errorf("create render pipeline %q: %w", req.Label, err)
	}

	c.nextID++
	c.pipelines[c.nextID] = &Pipeline{
		id:     c.nextID,
		label:  req.Label,
		raw:    raw,
		layout: layout,
		req:    req,
	}
	c.log.Debug("native: pipeline created", "label", req.Label, "id", c.nextID,
		"colors", len(req.ColorFormats), "depth", req.DepthFormat)
	return c.nextID, nil
}

// Pipeline implements framegraph.PipelineCache.
func (c *PipelineCache) Pipeline(id framegraph.PipelineID) (framegraph.Pipeline, error) {
	p, ok := c.pipelines[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPipeline, id)
	}
	return p, nil
}

// Len returns the number of live pipelines.
func (c *PipelineCache) Len() int { return len(c.pipelines) }

// Destroy releases every pipeline and pipeline layout.
func (c *PipelineCache) Destroy() {
	for id, p := range c.pipelines {
		c.device.DestroyRenderPipeline(p.raw)
		c.device.DestroyPipelineLayout(p.layout)
		delete(c.pipelines, id)
	}
}

// pipelineDescriptor translates a frame graph request into HAL state.
func pipelineDescriptor(req framegraph.PipelineRequest, layout hal.PipelineLayout, vs, fs *Shader) *hal.RenderPipelineDescriptor {
	cfg := req.Config

	var blend *gputypes.BlendState
	if cfg.Blend {
		premul := gputypes.BlendStatePremultiplied()
		blend = &premul
	}
	targets := make([]gputypes.ColorTargetState, 0, len(req.ColorFormats))
	for _, f := range req.ColorFormats {
		targets = append(targets, gputypes.ColorTargetState{
			Format:    f,
			Blend:     blend,
			WriteMask: gputypes.ColorWriteMaskAll,
		})
	}

	topology := cfg.Topology
	if topology == 0 {
		topology = gputypes.PrimitiveTopologyTriangleList
	}
	cull := cfg.CullMode
	if cull == 0 {
		cull = gputypes.CullModeNone
	}

	desc := &hal.RenderPipelineDescriptor{
		Label:  req.Label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     vs.module,
			EntryPoint: vs.entryPoint,
			Buffers:    req.VertexBinding.Buffers,
		},
		Fragment: &hal.FragmentState{
			Module:     fs.module,
			EntryPoint: fs.entryPoint,
			Targets:    targets,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: topology,
			CullMode: cull,
		},
	}

	if req.DepthFormat != gputypes.TextureFormatUndefined {
		compare := gputypes.CompareFunctionAlways
		if cfg.DepthTest {
			compare = cfg.DepthCompare
			if compare == 0 {
				compare = gputypes.CompareFunctionLess
			}
		}
		keep := hal.StencilFaceState{
			Compare:     gputypes.CompareFunctionAlways,
			FailOp:      hal.StencilOperationKeep,
			DepthFailOp: hal.StencilOperationKeep,
			PassOp:      hal.StencilOperationKeep,
		}
		desc.DepthStencil = &hal.DepthStencilState{
			Format:            req.DepthFormat,
			DepthWriteEnabled: cfg.DepthWrite,
			DepthCompare:      compare,
			StencilFront:      keep,
			StencilBack:       keep,
			StencilReadMask:   0xFF,
			StencilWriteMask:  0xFF,
		}
	}
	return desc
}
