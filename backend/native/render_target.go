// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph"
)

// RenderTarget is the set of attachment views one pass renders into. Each
// BeginFrame/EndFrame pair records, submits, and waits for one command
// buffer.
type RenderTarget struct {
	backend *Backend
	label   string
	width   uint32
	height  uint32
	colors  []*Texture
	depth   *Texture

	// Set between BeginFrame and EndFrame.
	encoder hal.CommandEncoder
	pass    hal.RenderPassEncoder
}

// Label returns the debug label.
func (rt *RenderTarget) Label() string { return rt.label }

// Size returns the attachment size shared by all views.
func (rt *RenderTarget) Size() (width, height uint32) { return rt.width, rt.height }

// BeginFrame implements framegraph.RenderTarget. Queued layout transitions
// are recorded before the render pass begins. Color attachments are
// cleared to clearColor; a depth attachment is cleared to clearDepth, and
// its stencil aspect too when the format has one.
func (rt *RenderTarget) BeginFrame(pipeline framegraph.Pipeline, clearColor gputypes.Color, clearDepth framegraph.ClearDepth) (framegraph.CommandBuffer, error) {
	if rt.encoder != nil {
		return nil, fmt.Errorf("%q: %w", rt.label, ErrFrameInProgress)
	}
	b := rt.backend

	// Views are checked before the queued transitions are taken, so a
	// failed frame leaves them for the next encoder.
	desc := &hal.RenderPassDescriptor{Label: rt.label}
	for _, c := range rt.colors {
		view := c.View()
		if view == nil {
			return nil, fmt.Errorf("color attachment %q: %w", c.Label(), ErrTextureDestroyed)
		}
		desc.ColorAttachments = append(desc.ColorAttachments, hal.RenderPassColorAttachment{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: clearColor,
		})
	}
	if rt.depth != nil {
		view := rt.depth.View()
		if view == nil {
			return nil, fmt.Errorf("depth attachment %q: %w", rt.depth.Label(), ErrTextureDestroyed)
		}
		ds := &hal.RenderPassDepthStencilAttachment{
			View:            view,
			DepthLoadOp:     gputypes.LoadOpClear,
			DepthStoreOp:    gputypes.StoreOpStore,
			DepthClearValue: clearDepth.Depth,
		}
		if framegraph.HasStencil(rt.depth.Format()) {
			ds.StencilLoadOp = gputypes.LoadOpClear
			ds.StencilStoreOp = gputypes.StoreOpStore
			ds.StencilClearValue = clearDepth.Stencil
		}
		desc.DepthStencilAttachment = ds
	}

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: b.opts.labelPrefix + "_" + rt.label + "_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(rt.label); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	if barriers := b.takeBarriers(); len(barriers) > 0 {
		encoder.TransitionTextures(barriers)
	}

	rp := encoder.BeginRenderPass(desc)
	if p, ok := pipeline.(*Pipeline); ok && p.raw != nil {
		rp.SetPipeline(p.raw)
	}

	rt.encoder = encoder
	rt.pass = rp
	return &CommandBuffer{label: rt.label, pass: rp}, nil
}

// EndFrame implements framegraph.RenderTarget. A GPU wait that times out
// is reported as framegraph.ErrDeviceLost.
func (rt *RenderTarget) EndFrame() error {
	if rt.encoder == nil {
		return fmt.Errorf("%q: %w", rt.label, ErrNoFrame)
	}
	b := rt.backend
	encoder, rp := rt.encoder, rt.pass
	rt.encoder, rt.pass = nil, nil

	rp.End()
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}

	index, err := b.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		b.device.FreeCommandBuffer(cmdBuf)
		return fmt.Errorf("submit: %w", err)
	}
	if err := b.waitSubmission(index); err != nil {
		// The GPU may still own the buffer.
		return fmt.Errorf("%w: %q: %w", framegraph.ErrDeviceLost, rt.label, err)
	}
	b.device.FreeCommandBuffer(cmdBuf)
	return nil
}

// abandon drops a frame left open by a failed caller.
func (rt *RenderTarget) abandon() {
	if rt.encoder == nil {
		return
	}
	rt.pass.End()
	rt.encoder.DiscardEncoding()
	rt.encoder, rt.pass = nil, nil
}

// CommandBuffer exposes the render pass of the current frame to pass
// callbacks.
type CommandBuffer struct {
	label string
	pass  hal.RenderPassEncoder
	draws int
}

// Label implements framegraph.CommandBuffer.
func (c *CommandBuffer) Label() string { return c.label }

// RenderPass returns the HAL render pass encoder. It is only valid until
// EndFrame.
func (c *CommandBuffer) RenderPass() hal.RenderPassEncoder { return c.pass }

// Draw records a non-indexed draw with the pipeline bound by BeginFrame.
func (c *CommandBuffer) Draw(vertexCount, instanceCount uint32) {
	c.pass.Draw(vertexCount, instanceCount, 0, 0)
	c.draws++
}

// Draws returns the number of Draw calls recorded.
func (c *CommandBuffer) Draws() int { return c.draws }

// CommandBufferFrom extracts the native command buffer from a pass
// context. It fails when the graph runs on a different backend.
func CommandBufferFrom(ctx framegraph.RenderPassContext) (*CommandBuffer, error) {
	cb, ok := ctx.CommandBuffer.(*CommandBuffer)
	if !ok {
		return nil, errors.Join(ErrForeignResource, fmt.Errorf("pass %q command buffer is %T", ctx.Pass, ctx.CommandBuffer))
	}
	return cb, nil
}
