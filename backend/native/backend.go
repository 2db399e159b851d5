// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph"
)

// Backend implements framegraph.Device on a HAL device and queue.
//
// A Backend is not safe for concurrent use, matching FrameGraph.
type Backend struct {
	device hal.Device
	queue  hal.Queue
	opts   options
	log    *slog.Logger

	shaders   *ShaderCache
	pipelines *PipelineCache

	// pending holds barriers recorded by Texture.Transition until the next
	// BeginFrame puts them into a command encoder.
	pending []hal.TextureBarrier

	nextLayoutID uint64

	// surfaceFormat is TextureFormatUndefined unless created from a provider.
	surfaceFormat gputypes.TextureFormat
}

// New creates a backend on an already opened device and queue. The
// backend does not take ownership of either.
func New(device hal.Device, queue hal.Queue, opts ...Option) (*Backend, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if queue == nil {
		return nil, ErrNilQueue
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger
	if log == nil {
		log = framegraph.Logger()
	}

	b := &Backend{
		device: device,
		queue:  queue,
		opts:   o,
		log:    log,
	}
	shaders, err := newShaderCache(device, o.shaderCacheSize, log)
	if err != nil {
		return nil, err
	}
	b.shaders = shaders
	b.pipelines = newPipelineCache(device, log)
	return b, nil
}

// NewFromProvider creates a backend on the device shared by a
// gpucontext.DeviceProvider. The provider must also implement
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
func NewFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Backend, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrProviderNotHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrProviderNotHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrProviderNotHAL)
	}
	b, err := New(device, queue, opts...)
	if err != nil {
		return nil, err
	}
	b.surfaceFormat = provider.SurfaceFormat()
	return b, nil
}

// SurfaceFormat returns the provider's surface format, the format to
// register swapchain attachments with. It is TextureFormatUndefined for
// backends created with New.
func (b *Backend) SurfaceFormat() gputypes.TextureFormat { return b.surfaceFormat }

// Shaders returns the shader cache to pass to framegraph.New.
func (b *Backend) Shaders() *ShaderCache { return b.shaders }

// Pipelines returns the pipeline cache to pass to framegraph.New.
func (b *Backend) Pipelines() *PipelineCache { return b.pipelines }

// PendingBarriers returns the number of queued transitions not yet
// recorded into a command encoder.
func (b *Backend) PendingBarriers() int { return len(b.pending) }

// CreateTexture creates a 2D texture and its default view.
func (b *Backend) CreateTexture(desc framegraph.TextureDescriptor) (framegraph.Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("%w: %q is %dx%d", ErrInvalidTextureSize, desc.Label, desc.Width, desc.Height)
	}
	raw, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: max(desc.Layers, 1),
		},
		MipLevelCount: max(desc.MipLevels, 1),
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", desc.Label, err)
	}
	view, err := b.device.CreateTextureView(raw, &hal.TextureViewDescriptor{
		Label: desc.Label + "_view",
	})
	if err != nil {
		b.device.DestroyTexture(raw)
		return nil, fmt.Errorf("create texture view %q: %w", desc.Label, err)
	}
	b.log.Debug("native: texture created",
		"label", desc.Label, "width", desc.Width, "height", desc.Height, "format", desc.Format)
	return &Texture{
		backend: b,
		raw:     raw,
		view:    view,
		desc:    desc,
		owned:   true,
	}, nil
}

// WrapTexture adopts a texture created elsewhere, typically the current
// surface image. The backend never destroys a wrapped texture or view.
// The layout starts as framegraph.LayoutUndefined.
func (b *Backend) WrapTexture(raw hal.Texture, view hal.TextureView, desc framegraph.TextureDescriptor) *Texture {
	return &Texture{
		backend: b,
		raw:     raw,
		view:    view,
		desc:    desc,
	}
}

// DestroyTexture releases a texture created by CreateTexture. Wrapped and
// foreign textures are ignored.
func (b *Backend) DestroyTexture(t framegraph.Texture) {
	tex, ok := t.(*Texture)
	if !ok || tex.backend != b {
		b.log.Warn("native: DestroyTexture with a foreign texture", "type", fmt.Sprintf("%T", t))
		return
	}
	tex.destroy()
}

// CreateRenderTarget binds the attachment views of desc. All textures
// must come from this backend.
func (b *Backend) CreateRenderTarget(desc framegraph.RenderTargetDescriptor) (framegraph.RenderTarget, error) {
	rt := &RenderTarget{
		backend: b,
		label:   desc.Label,
		width:   desc.Width,
		height:  desc.Height,
	}
	for _, c := range desc.Colors {
		tex, err := b.own(c)
		if err != nil {
			return nil, fmt.Errorf("render target %q: %w", desc.Label, err)
		}
		rt.colors = append(rt.colors, tex)
	}
	if desc.Depth != nil {
		tex, err := b.own(desc.Depth)
		if err != nil {
			return nil, fmt.Errorf("render target %q: %w", desc.Label, err)
		}
		rt.depth = tex
	}
	return rt, nil
}

// DestroyRenderTarget releases a render target. Render targets hold no
// HAL objects of their own, so this only ends a frame left open.
func (b *Backend) DestroyRenderTarget(rt framegraph.RenderTarget) {
	target, ok := rt.(*RenderTarget)
	if !ok || target.backend != b {
		return
	}
	target.abandon()
}

// CreateDescriptorLayout creates a bind group layout usable as
// RenderPass.Layout.
func (b *Backend) CreateDescriptorLayout(label string, entries []gputypes.BindGroupLayoutEntry) (*DescriptorLayout, error) {
	raw, err := b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group layout %q: %w", label, err)
	}
	b.nextLayoutID++
	return &DescriptorLayout{id: b.nextLayoutID, label: label, raw: raw}, nil
}

// DestroyDescriptorLayout releases a layout created by CreateDescriptorLayout.
// Pipelines using it must be destroyed first.
func (b *Backend) DestroyDescriptorLayout(l *DescriptorLayout) {
	if l == nil || l.raw == nil {
		return
	}
	b.device.DestroyBindGroupLayout(l.raw)
	l.raw = nil
}

// Destroy releases every pipeline and shader module the backend created.
// Textures are released by their owners through DestroyTexture.
func (b *Backend) Destroy() {
	b.pipelines.Destroy()
	b.shaders.Destroy()
	b.pending = nil
}

// own checks that t is a live texture of this backend.
func (b *Backend) own(t framegraph.Texture) (*Texture, error) {
	tex, ok := t.(*Texture)
	if !ok || tex.backend != b {
		return nil, ErrForeignResource
	}
	if tex.IsDestroyed() {
		return nil, fmt.Errorf("%q: %w", tex.desc.Label, ErrTextureDestroyed)
	}
	return tex, nil
}

// queueBarrier records a transition for the next command encoder.
func (b *Backend) queueBarrier(barrier hal.TextureBarrier) {
	b.pending = append(b.pending, barrier)
}

// takeBarriers returns and clears the queued transitions.
func (b *Backend) takeBarriers() []hal.TextureBarrier {
	pending := b.pending
	b.pending = nil
	return pending
}

// submitPollInterval is how often waitSubmission polls the queue.
const submitPollInterval = 100 * time.Microsecond

// waitSubmission blocks until the queue reports submission index as
// completed or the submit timeout elapses.
func (b *Backend) waitSubmission(index uint64) error {
	deadline := time.Now().Add(b.opts.submitTimeout)
	for b.queue.PollCompleted() < index {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: index %d after %v", ErrSubmitTimeout, index, b.opts.submitTimeout)
		}
		time.Sleep(submitPollInterval)
	}
	return nil
}

// DescriptorLayout is a bind group layout with a stable identity for
// pipeline deduplication.
type DescriptorLayout struct {
	id    uint64
	label string
	raw   hal.BindGroupLayout
}

// LayoutID implements framegraph.DescriptorLayout.
func (l *DescriptorLayout) LayoutID() uint64 { return l.id }

// Label returns the debug label.
func (l *DescriptorLayout) Label() string { return l.label }

// Raw returns the HAL bind group layout, nil once destroyed.
func (l *DescriptorLayout) Raw() hal.BindGroupLayout { return l.raw }
