// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"errors"
	"fmt"
)

// Execute runs the baked passes in order. Before each pass it transitions
// the attachments the pass reads to LayoutShaderRead and the ones it writes
// to the matching attachment layout, then brackets the pass callback with
// RenderTarget.BeginFrame and EndFrame.
//
// Execute returns ErrNotBaked if the graph changed since the last
// successful Bake. Errors caused by a lost device or an outdated surface
// are wrapped with ErrNeedsRebuild.
func (g *FrameGraph) Execute() error {
	if !g.baked {
		return ErrNotBaked
	}
	for _, id := range g.order {
		if err := g.executePass(&g.passes[id], &g.passInstances[id]); err != nil {
			return g.executeError(&g.passes[id], err)
		}
	}
	return nil
}

func (g *FrameGraph) executePass(pass *RenderPass, inst *RenderPassInstance) error {
	for _, a := range pass.reads() {
		if err := g.transition(pass, a, LayoutShaderRead); err != nil {
			return err
		}
	}
	for _, a := range pass.WriteColors {
		if err := g.transition(pass, a, LayoutColorAttachment); err != nil {
			return err
		}
	}
	if a := pass.WriteDepthAttachment; a.Valid() {
		if err := g.transition(pass, a, LayoutDepthAttachment); err != nil {
			return err
		}
	}

	cmd, err := inst.RenderTarget.BeginFrame(inst.Pipeline, pass.clearColor(), pass.clearDepth())
	if err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}

	var cbErr error
	if pass.Execute != nil {
		cbErr = pass.Execute(RenderPassContext{
			Pass:          pass.Name,
			Pipeline:      inst.Pipeline,
			CommandBuffer: cmd,
			Target:        inst.RenderTarget,
		})
	}

	// The frame is ended even when the callback failed so the render
	// target is ready for the next BeginFrame.
	if err := inst.RenderTarget.EndFrame(); err != nil {
		return errors.Join(cbErr, fmt.Errorf("end frame: %w", err))
	}
	return cbErr
}

// transition moves attachment a to target unless it is already there.
// Undefined is never considered settled.
func (g *FrameGraph) transition(pass *RenderPass, a AttachmentID, target TextureLayout) error {
	tex := g.attachmentInstances[a].Texture
	current := tex.Layout()
	if !needsTransition(current, target) {
		return nil
	}
	g.slogger().Debug("framegraph: barrier",
		"pass", pass.Name,
		"attachment", g.attachments[a].Name,
		"from", current,
		"to", target)
	if err := tex.Transition(BarrierFor(current, target)); err != nil {
		return fmt.Errorf("transition %q to %s: %w", g.attachments[a].Name, target, err)
	}
	return nil
}

func (g *FrameGraph) executeError(pass *RenderPass, err error) error {
	if errors.Is(err, ErrDeviceLost) || errors.Is(err, ErrSurfaceOutdated) {
		g.slogger().Warn("framegraph: execute needs rebuild", "pass", pass.Name, "err", err)
		return fmt.Errorf("%w: pass %q: %w", ErrNeedsRebuild, pass.Name, err)
	}
	return fmt.Errorf("framegraph: execute pass %q: %w", pass.Name, err)
}
