// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"fmt"
	"log/slog"
	"slices"
)

// FrameGraph is a declarative description of one frame's render passes
// together with the physical resources they resolved to.
//
// A FrameGraph is not safe for concurrent use.
type FrameGraph struct {
	device    Device
	shaders   ShaderCache
	pipelines PipelineCache
	opts      options

	// log is logBase with the graph label attached, rebuilt when the
	// package logger changes.
	logBase *slog.Logger
	log     *slog.Logger

	attachments []AttachmentDescription
	passes      []RenderPass

	// Results of the last successful Bake.
	baked               bool
	order               []RenderPassID
	lifetimes           map[AttachmentID]AttachmentLifetime
	attachmentInstances []AttachmentInstance
	passInstances       []RenderPassInstance

	// pipelineByHash survives across bakes. The pipelines are owned by
	// the PipelineCache.
	pipelineByHash map[uint64]Pipeline

	stats Stats
}

// Stats reports what the last successful Bake produced.
type Stats struct {
	Passes      int
	Attachments int

	// OwnedTextures and OwnedRenderTargets count resources the graph
	// created and will release.
	OwnedTextures      int
	OwnedRenderTargets int

	// PipelinesCreated counts pipelines registered with the PipelineCache
	// by the last Bake; PipelinesReused counts passes served from the
	// hash cache instead.
	PipelinesCreated int
	PipelinesReused  int

	// Bakes is the number of successful bakes over the graph's life.
	Bakes int
}

// New creates an empty graph that allocates from device and resolves
// shaders and pipelines through the given caches.
func New(device Device, shaders ShaderCache, pipelines PipelineCache, opts ...Option) *FrameGraph {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &FrameGraph{
		device:         device,
		shaders:        shaders,
		pipelines:      pipelines,
		opts:           o,
		pipelineByHash: make(map[uint64]Pipeline),
	}
}

// slogger returns the WithLogger logger, or else the current package
// logger, tagged with the graph label.
func (g *FrameGraph) slogger() *slog.Logger {
	base := g.opts.logger
	if base == nil {
		base = Logger()
	}
	if base != g.logBase {
		g.logBase = base
		g.log = base.With("graph", g.opts.label)
	}
	return g.log
}

// RegisterAttachment adds a logical attachment and returns its id. Ids
// increase by one per call, starting at zero.
func (g *FrameGraph) RegisterAttachment(desc AttachmentDescription) AttachmentID {
	g.attachments = append(g.attachments, desc)
	g.baked = false
	return AttachmentID(len(g.attachments) - 1)
}

// AddPass adds a pass and returns its id. Ids increase by one per call,
// starting at zero. The graph must be baked again before Execute.
func (g *FrameGraph) AddPass(pass RenderPass) RenderPassID {
	g.passes = append(g.passes, pass)
	g.baked = false
	return RenderPassID(len(g.passes) - 1)
}

// UpdateAttachmentTexture makes tex the backing of attachment id.
//
// On a baked graph the new texture takes effect immediately: a texture the
// graph owned for that slot is destroyed, and the passes writing id get
// their pipeline resolved again for the new format and their render
// target recreated. No other attachment is touched and the execution
// order is kept. This is how a swapchain image is rebound every frame.
//
// If a pipeline or render target cannot be created the graph is left
// unbaked and the error is returned.
//
// Passing a nil tex clears the override; the graph then needs a Bake to
// allocate its own texture.
func (g *FrameGraph) UpdateAttachmentTexture(id AttachmentID, tex Texture) error {
	if !g.known(id) {
		return fmt.Errorf("%w: %d", ErrUnknownAttachment, id)
	}
	g.attachments[id].Override = tex
	if tex == nil {
		g.baked = false
		return nil
	}
	if !g.baked {
		return nil
	}

	inst := &g.attachmentInstances[id]
	if inst.Owned {
		g.device.DestroyTexture(inst.Texture)
	}
	inst.Texture = tex
	inst.Owned = false
	inst.Width = tex.Width()
	inst.Height = tex.Height()

	for i := range g.passes {
		pass := &g.passes[i]
		pi := &g.passInstances[i]
		if !slices.Contains(pass.writes(), id) {
			continue
		}
		prev := pi.PipelineHash
		if _, err := g.resolvePipeline(pass, pi, g.attachmentInstances); err != nil {
			// The old target may reference the old texture. Force a Bake.
			g.baked = false
			return err
		}
		if pi.PipelineHash != prev {
			g.slogger().Debug("framegraph: pipeline changed on rebind",
				"pass", pass.Name, "attachment", g.attachments[id].Name, "hash", pi.PipelineHash)
		}
		if !pi.OwnsTarget {
			continue
		}
		rt, err := g.createRenderTarget(pass, pi.Pipeline, g.attachmentInstances)
		if err != nil {
			g.baked = false
			return err
		}
		g.device.DestroyRenderTarget(pi.RenderTarget)
		pi.RenderTarget = rt
	}
	return nil
}

// Attachment returns the description registered under id.
func (g *FrameGraph) Attachment(id AttachmentID) (AttachmentDescription, bool) {
	if !g.known(id) {
		return AttachmentDescription{}, false
	}
	return g.attachments[id], true
}

// Pass returns the pass registered under id.
func (g *FrameGraph) Pass(id RenderPassID) (RenderPass, bool) {
	if id < 0 || int(id) >= len(g.passes) {
		return RenderPass{}, false
	}
	return g.passes[id], true
}

// AttachmentInstance returns the physical backing of id from the last
// successful Bake.
func (g *FrameGraph) AttachmentInstance(id AttachmentID) (AttachmentInstance, bool) {
	if !id.Valid() || int(id) >= len(g.attachmentInstances) {
		return AttachmentInstance{}, false
	}
	return g.attachmentInstances[id], true
}

// PassInstance returns the resources pass id resolved to in the last
// successful Bake.
func (g *FrameGraph) PassInstance(id RenderPassID) (RenderPassInstance, bool) {
	if id < 0 || int(id) >= len(g.passInstances) {
		return RenderPassInstance{}, false
	}
	return g.passInstances[id], true
}

// BakedOrder returns the execution order of the last successful Bake.
func (g *FrameGraph) BakedOrder() []RenderPassID {
	return slices.Clone(g.order)
}

// Lifetime returns the first and last baked order positions that use id.
// The second result is false for attachments no pass references.
func (g *FrameGraph) Lifetime(id AttachmentID) (AttachmentLifetime, bool) {
	lt, ok := g.lifetimes[id]
	return lt, ok
}

// PipelineCount returns the number of distinct deduplicated pipelines the
// graph has seen across bakes.
func (g *FrameGraph) PipelineCount() int {
	return len(g.pipelineByHash)
}

// Stats returns statistics of the last successful Bake.
func (g *FrameGraph) Stats() Stats {
	return g.stats
}

// IsBaked reports whether Execute can run without another Bake.
func (g *FrameGraph) IsBaked() bool {
	return g.baked
}

// Destroy releases the textures and render targets the graph owns and
// returns it to the unbaked state. Registered attachments and passes are
// kept, so the graph can be baked again.
func (g *FrameGraph) Destroy() {
	if g.attachmentInstances == nil && g.passInstances == nil {
		g.slogger().Warn("framegraph: Destroy on a graph without resources")
		return
	}
	g.release(g.attachmentInstances, g.passInstances)
	g.attachmentInstances = nil
	g.passInstances = nil
	g.order = nil
	g.lifetimes = nil
	g.baked = false
	clear(g.pipelineByHash)
}

// release destroys the owned resources among the given instances.
// Render targets go first since they reference the textures.
func (g *FrameGraph) release(attachments []AttachmentInstance, passes []RenderPassInstance) {
	for i := range passes {
		if passes[i].OwnsTarget && passes[i].RenderTarget != nil {
			g.device.DestroyRenderTarget(passes[i].RenderTarget)
		}
	}
	for i := range attachments {
		if attachments[i].Owned && attachments[i].Texture != nil {
			g.device.DestroyTexture(attachments[i].Texture)
		}
	}
}

func (g *FrameGraph) known(id AttachmentID) bool {
	return id.Valid() && int(id) < len(g.attachments)
}
