// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/gogpu/gputypes"
)

// Bake analyzes the registered passes and creates the physical resources
// they need:
//
//  1. writer to reader dependencies are extracted per attachment,
//  2. passes are ordered topologically (Kahn, seeded in registration order),
//  3. attachment lifetimes are computed over that order,
//  4. attachments are backed by override or newly created textures,
//  5. pipelines are resolved and deduplicated by description hash,
//  6. render targets are created for every pass.
//
// Failures are reported as *BakeError. A failed Bake releases whatever it
// created and leaves the previous successful bake in place.
func (g *FrameGraph) Bake() error {
	start := time.Now()

	adj, err := g.buildDependencies()
	if err != nil {
		return err
	}
	order, err := g.sortPasses(adj)
	if err != nil {
		return err
	}
	lifetimes := g.computeLifetimes(order)

	attachments, err := g.instantiateAttachments()
	if err != nil {
		return err
	}

	passes := make([]RenderPassInstance, len(g.passes))
	stats := Stats{
		Passes:      len(g.passes),
		Attachments: len(g.attachments),
		Bakes:       g.stats.Bakes + 1,
	}
	for _, id := range order {
		inst, reused, err := g.resolvePass(&g.passes[id], attachments)
		if err != nil {
			g.release(attachments, passes)
			return err
		}
		passes[id] = inst
		switch {
		case inst.PipelineHash == 0:
		case reused:
			stats.PipelinesReused++
		default:
			stats.PipelinesCreated++
		}
		if inst.OwnsTarget {
			stats.OwnedRenderTargets++
		}
	}
	for i := range attachments {
		if attachments[i].Owned {
			stats.OwnedTextures++
		}
	}

	g.release(g.attachmentInstances, g.passInstances)
	g.order = order
	g.lifetimes = lifetimes
	g.attachmentInstances = attachments
	g.passInstances = passes
	g.stats = stats
	g.baked = true

	g.slogger().Info("framegraph: baked",
		"passes", stats.Passes,
		"attachments", stats.Attachments,
		"owned_textures", stats.OwnedTextures,
		"pipelines_created", stats.PipelinesCreated,
		"pipelines_reused", stats.PipelinesReused,
		"elapsed", time.Since(start))
	return nil
}

// buildDependencies returns the writer to reader adjacency list, indexed
// by pass id. Successors are sorted and unique; self edges are dropped.
func (g *FrameGraph) buildDependencies() ([][]RenderPassID, error) {
	readers := make([][]RenderPassID, len(g.attachments))
	writers := make([][]RenderPassID, len(g.attachments))

	for i := range g.passes {
		pass := &g.passes[i]
		id := RenderPassID(i)
		for _, a := range pass.reads() {
			if !g.known(a) {
				return nil, &BakeError{Kind: BakeErrorUnknownAttachment, Pass: pass.Name, Attachment: a}
			}
			if !slices.Contains(readers[a], id) {
				readers[a] = append(readers[a], id)
			}
		}
		for _, a := range pass.writes() {
			if !g.known(a) {
				return nil, &BakeError{Kind: BakeErrorUnknownAttachment, Pass: pass.Name, Attachment: a}
			}
			// A render target cannot bind one view to two slots.
			if slices.Contains(writers[a], id) {
				return nil, &BakeError{
					Kind:       BakeErrorDuplicateWrite,
					Pass:       pass.Name,
					Attachment: a,
					Err:        fmt.Errorf("%q is bound to more than one write slot", g.attachments[a].Name),
				}
			}
			if len(writers[a]) > 0 && g.opts.writerPolicy == WriterPolicyExclusive {
				first := g.passes[writers[a][0]].Name
				return nil, &BakeError{
					Kind:       BakeErrorMultipleWriters,
					Pass:       pass.Name,
					Attachment: a,
					Err:        fmt.Errorf("%q is already written by %q", g.attachments[a].Name, first),
				}
			}
			writers[a] = append(writers[a], id)
		}
	}

	adj := make([][]RenderPassID, len(g.passes))
	addEdge := func(from, to RenderPassID) {
		if from == to || slices.Contains(adj[from], to) {
			return
		}
		adj[from] = append(adj[from], to)
	}
	for a := range g.attachments {
		ws := writers[a]
		if len(ws) == 0 {
			continue
		}
		// Writers are chained in registration order. With a single writer
		// this loop does nothing.
		for k := 1; k < len(ws); k++ {
			addEdge(ws[k-1], ws[k])
		}
		last := ws[len(ws)-1]
		for _, r := range readers[a] {
			// A pass that also writes the attachment reads what the writer
			// before it produced.
			if k := slices.Index(ws, r); k >= 0 {
				if k > 0 {
					addEdge(ws[k-1], r)
				}
				continue
			}
			addEdge(last, r)
		}
	}
	for i := range adj {
		slices.Sort(adj[i])
	}
	return adj, nil
}

// sortPasses orders the passes with Kahn's algorithm. Ready passes are
// taken in FIFO order starting from registration order, so the result is
// deterministic.
func (g *FrameGraph) sortPasses(adj [][]RenderPassID) ([]RenderPassID, error) {
	n := len(g.passes)
	inDegree := make([]int, n)
	for _, succ := range adj {
		for _, to := range succ {
			inDegree[to]++
		}
	}

	queue := make([]RenderPassID, 0, n)
	for i := range n {
		if inDegree[i] == 0 {
			queue = append(queue, RenderPassID(i))
		}
	}

	order := make([]RenderPassID, 0, n)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, to := range adj[id] {
			inDegree[to]--
			if inDegree[to] == 0 {
				queue = append(queue, to)
			}
		}
	}

	if len(order) != n {
		var stuck []string
		for i := range n {
			if inDegree[i] > 0 {
				stuck = append(stuck, g.passes[i].Name)
			}
		}
		return nil, &BakeError{
			Kind:       BakeErrorCycleDetected,
			Attachment: InvalidAttachment,
			Passes:     stuck,
		}
	}

	if g.slogger().Enabled(context.Background(), slog.LevelDebug) {
		names := make([]string, len(order))
		for i, id := range order {
			names[i] = g.passes[id].Name
		}
		g.slogger().Debug("framegraph: pass order", "order", names)
	}
	return order, nil
}

// computeLifetimes records, per referenced attachment, the first and last
// position in order that reads or writes it.
func (g *FrameGraph) computeLifetimes(order []RenderPassID) map[AttachmentID]AttachmentLifetime {
	lifetimes := make(map[AttachmentID]AttachmentLifetime)
	for pos, id := range order {
		pass := &g.passes[id]
		for _, a := range slices.Concat(pass.reads(), pass.writes()) {
			lt, ok := lifetimes[a]
			if !ok {
				lt = AttachmentLifetime{FirstUse: pos, LastUse: pos}
			}
			lt.FirstUse = min(lt.FirstUse, pos)
			lt.LastUse = max(lt.LastUse, pos)
			lifetimes[a] = lt
		}
	}
	return lifetimes
}

// instantiateAttachments backs every registered attachment with a texture.
// On failure the textures created so far are destroyed.
func (g *FrameGraph) instantiateAttachments() ([]AttachmentInstance, error) {
	instances := make([]AttachmentInstance, len(g.attachments))
	for i := range g.attachments {
		desc := &g.attachments[i]
		layers := orOne(desc.Layers)
		mips := orOne(desc.MipLevels)

		if desc.Override != nil {
			instances[i] = AttachmentInstance{
				Texture:   desc.Override,
				Width:     desc.Override.Width(),
				Height:    desc.Override.Height(),
				Layers:    layers,
				MipLevels: mips,
			}
			continue
		}

		tex, err := g.device.CreateTexture(TextureDescriptor{
			Label:     g.opts.label + "_" + desc.Name,
			Width:     desc.Width,
			Height:    desc.Height,
			Layers:    layers,
			MipLevels: mips,
			Format:    desc.Format,
			Usage:     attachmentUsage(),
		})
		if err != nil {
			g.release(instances[:i], nil)
			return nil, &BakeError{
				Kind:       BakeErrorResourceCreation,
				Attachment: AttachmentID(i),
				Err:        fmt.Errorf("create texture %q: %w", desc.Name, err),
			}
		}
		instances[i] = AttachmentInstance{
			Texture:   tex,
			Owned:     true,
			Width:     desc.Width,
			Height:    desc.Height,
			Layers:    layers,
			MipLevels: mips,
		}
		g.slogger().Debug("framegraph: created attachment",
			"name", desc.Name, "width", desc.Width, "height", desc.Height,
			"format", desc.Format, "depth", IsDepthFormat(desc.Format))
	}
	return instances, nil
}

// resolvePass resolves the shaders, pipeline and render target of pass.
// reused reports whether the pipeline came from the hash cache.
func (g *FrameGraph) resolvePass(pass *RenderPass, attachments []AttachmentInstance) (inst RenderPassInstance, reused bool, err error) {
	if pass.VertexShader != InvalidShader {
		if inst.VertexShader, err = g.shaders.Shader(pass.VertexShader); err != nil {
			return inst, false, g.creationError(pass, fmt.Errorf("vertex shader %d: %w", pass.VertexShader, err))
		}
	}
	if pass.FragmentShader != InvalidShader {
		if inst.FragmentShader, err = g.shaders.Shader(pass.FragmentShader); err != nil {
			return inst, false, g.creationError(pass, fmt.Errorf("fragment shader %d: %w", pass.FragmentShader, err))
		}
	}

	if reused, err = g.resolvePipeline(pass, &inst, attachments); err != nil {
		return inst, false, err
	}

	if pass.RenderTargetOverrideValue != nil {
		inst.RenderTarget = pass.RenderTargetOverrideValue
		return inst, reused, nil
	}
	inst.RenderTarget, err = g.createRenderTarget(pass, inst.Pipeline, attachments)
	if err != nil {
		return inst, false, err
	}
	inst.OwnsTarget = true
	return inst, reused, nil
}

// resolvePipeline sets inst.Pipeline and inst.PipelineHash from the
// formats and usages of the attachments pass writes. The shaders in inst
// must already be resolved.
func (g *FrameGraph) resolvePipeline(pass *RenderPass, inst *RenderPassInstance, attachments []AttachmentInstance) (reused bool, err error) {
	if pass.PipelineOverrideValue != nil {
		inst.Pipeline = pass.PipelineOverrideValue
		inst.PipelineHash = 0
		return false, nil
	}
	desc := g.pipelineDescription(pass, attachments)
	inst.PipelineHash = desc.Hash()
	if p, ok := g.pipelineByHash[inst.PipelineHash]; ok {
		inst.Pipeline = p
		g.slogger().Debug("framegraph: pipeline reused", "pass", pass.Name, "hash", inst.PipelineHash)
		return true, nil
	}
	p, err := g.createPipeline(pass, inst, &desc)
	if err != nil {
		return false, err
	}
	inst.Pipeline = p
	g.pipelineByHash[inst.PipelineHash] = p
	return false, nil
}

// pipelineDescription collects everything that distinguishes the pipeline
// of pass from other pipelines.
func (g *FrameGraph) pipelineDescription(pass *RenderPass, attachments []AttachmentInstance) PipelineDescription {
	desc := PipelineDescription{
		VertexShader:   pass.VertexShader,
		FragmentShader: pass.FragmentShader,
		Vertex:         pass.Vertex,
		Config:         pass.PipelineConfig,
	}
	if pass.DescriptorLayout != nil {
		desc.LayoutID = pass.DescriptorLayout.LayoutID()
	}
	for _, a := range pass.WriteColors {
		desc.ColorFormats = append(desc.ColorFormats, attachments[a].Texture.Format())
		desc.ColorUsages = append(desc.ColorUsages, instanceUsage(&attachments[a]))
	}
	if a := pass.WriteDepthAttachment; a.Valid() {
		desc.DepthFormat = attachments[a].Texture.Format()
		desc.DepthUsage = instanceUsage(&attachments[a])
	}
	return desc
}

// instanceUsage is the usage recorded in pipeline descriptions. Borrowed
// textures are only known to be renderable.
func instanceUsage(inst *AttachmentInstance) gputypes.TextureUsage {
	if inst.Owned {
		return attachmentUsage()
	}
	return gputypes.TextureUsageRenderAttachment
}

func (g *FrameGraph) createPipeline(pass *RenderPass, inst *RenderPassInstance, desc *PipelineDescription) (Pipeline, error) {
	id, err := g.pipelines.RegisterPipeline(PipelineRequest{
		Label:          pass.Name,
		VertexShader:   inst.VertexShader,
		FragmentShader: inst.FragmentShader,
		Layout:         pass.DescriptorLayout,
		VertexBinding:  pass.Vertex,
		ColorFormats:   desc.ColorFormats,
		DepthFormat:    desc.DepthFormat,
		Config:         pass.PipelineConfig,
	})
	if err != nil {
		return nil, g.creationError(pass, fmt.Errorf("register pipeline: %w", err))
	}
	pipeline, err := g.pipelines.Pipeline(id)
	if err != nil {
		return nil, g.creationError(pass, fmt.Errorf("pipeline %d: %w", id, err))
	}
	g.slogger().Debug("framegraph: pipeline created", "pass", pass.Name, "id", id, "hash", inst.PipelineHash)
	return pipeline, nil
}

// createRenderTarget gathers the attachments pass writes, checks that they
// agree on size and asks the device for a render target.
func (g *FrameGraph) createRenderTarget(pass *RenderPass, pipeline Pipeline, attachments []AttachmentInstance) (RenderTarget, error) {
	desc := RenderTargetDescriptor{
		Label:    g.opts.label + "_" + pass.Name,
		Pipeline: pipeline,
	}
	sized := false
	check := func(a AttachmentID) error {
		inst := &attachments[a]
		if !sized {
			desc.Width, desc.Height = inst.Width, inst.Height
			sized = true
			return nil
		}
		if inst.Width != desc.Width || inst.Height != desc.Height {
			return &BakeError{
				Kind:       BakeErrorAttachmentSizeMismatch,
				Pass:       pass.Name,
				Attachment: a,
				Err: fmt.Errorf("%q is %dx%d, want %dx%d",
					g.attachments[a].Name, inst.Width, inst.Height, desc.Width, desc.Height),
			}
		}
		return nil
	}

	for _, a := range pass.WriteColors {
		if err := check(a); err != nil {
			return nil, err
		}
		desc.Colors = append(desc.Colors, attachments[a].Texture)
	}
	if a := pass.WriteDepthAttachment; a.Valid() {
		if err := check(a); err != nil {
			return nil, err
		}
		desc.Depth = attachments[a].Texture
	}
	if !sized {
		desc.Width, desc.Height = 1, 1
	}

	rt, err := g.device.CreateRenderTarget(desc)
	if err != nil {
		return nil, g.creationError(pass, fmt.Errorf("create render target: %w", err))
	}
	return rt, nil
}

func (g *FrameGraph) creationError(pass *RenderPass, err error) error {
	return &BakeError{
		Kind:       BakeErrorResourceCreation,
		Pass:       pass.Name,
		Attachment: InvalidAttachment,
		Err:        err,
	}
}
