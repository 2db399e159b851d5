// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph"
)

// Texture is a HAL texture with its default view and tracked layout.
//
// Transitions are queued on the backend and recorded into the command
// encoder of the next BeginFrame, so the layout reported by Layout is the
// layout the texture will be in once that frame starts.
type Texture struct {
	// mu protects mutable state.
	mu sync.RWMutex

	backend *Backend
	raw     hal.Texture
	view    hal.TextureView
	desc    framegraph.TextureDescriptor
	layout  framegraph.TextureLayout

	// owned is false for wrapped textures, which are never destroyed here.
	owned     bool
	destroyed bool
}

// Label returns the debug label.
func (t *Texture) Label() string { return t.desc.Label }

// Width implements framegraph.Texture.
func (t *Texture) Width() uint32 { return t.desc.Width }

// Height implements framegraph.Texture.
func (t *Texture) Height() uint32 { return t.desc.Height }

// Format implements framegraph.Texture.
func (t *Texture) Format() gputypes.TextureFormat { return t.desc.Format }

// Layout implements framegraph.Texture.
func (t *Texture) Layout() framegraph.TextureLayout {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.layout
}

// Transition implements framegraph.Texture. The HAL barrier is recorded
// by the next BeginFrame of any render target of the same backend.
func (t *Texture) Transition(barrier framegraph.TextureBarrier) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return fmt.Errorf("transition %q: %w", t.desc.Label, ErrTextureDestroyed)
	}
	t.backend.queueBarrier(hal.TextureBarrier{
		Texture: t.raw,
		Usage: hal.TextureUsageTransition{
			OldUsage: layoutUsage(barrier.OldLayout),
			NewUsage: layoutUsage(barrier.NewLayout),
		},
	})
	t.layout = barrier.NewLayout
	return nil
}

// IsDestroyed reports whether Destroy has released the texture.
func (t *Texture) IsDestroyed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.destroyed
}

// Owned reports whether the backend created the HAL texture.
func (t *Texture) Owned() bool { return t.owned }

// Raw returns the HAL texture, nil once destroyed.
func (t *Texture) Raw() hal.Texture {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.destroyed {
		return nil
	}
	return t.raw
}

// View returns the default view, nil once destroyed.
func (t *Texture) View() hal.TextureView {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.destroyed {
		return nil
	}
	return t.view
}

// destroy is idempotent. Wrapped textures are only marked destroyed.
func (t *Texture) destroy() {
	t.mu.Lock()
	if t.destroyed {
		t.mu.Unlock()
		return
	}
	t.destroyed = true
	raw, view := t.raw, t.view
	t.raw, t.view = nil, nil
	t.mu.Unlock()

	if !t.owned {
		return
	}
	device := t.backend.device
	if view != nil {
		device.DestroyTextureView(view)
	}
	if raw != nil {
		device.DestroyTexture(raw)
	}
}

// layoutUsage maps a graph layout onto the HAL usage state it corresponds to.
func layoutUsage(l framegraph.TextureLayout) gputypes.TextureUsage {
	switch l {
	case framegraph.LayoutShaderRead:
		return gputypes.TextureUsageTextureBinding
	case framegraph.LayoutColorAttachment, framegraph.LayoutDepthAttachment:
		return gputypes.TextureUsageRenderAttachment
	default:
		return 0
	}
}
