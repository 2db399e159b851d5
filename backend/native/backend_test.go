package native

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/framegraph"
)

// createNoopDevice creates a noop device and queue for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	device, queue := createNoopDevice(t)
	b, err := New(device, queue)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	t.Cleanup(b.Destroy)
	return b
}

func mustTexture(t *testing.T, b *Backend, label string, format gputypes.TextureFormat) *Texture {
	t.Helper()
	tex, err := b.CreateTexture(framegraph.TextureDescriptor{
		Label:  label,
		Width:  64,
		Height: 32,
		Format: format,
		Usage:  gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		t.Fatalf("CreateTexture(%q) = %v", label, err)
	}
	return tex.(*Texture)
}

func TestNewNilArguments(t *testing.T) {
	device, queue := createNoopDevice(t)
	if _, err := New(nil, queue); !errors.Is(err, ErrNilDevice) {
		t.Errorf("New(nil, queue) = %v, want ErrNilDevice", err)
	}
	if _, err := New(device, nil); !errors.Is(err, ErrNilQueue) {
		t.Errorf("New(device, nil) = %v, want ErrNilQueue", err)
	}
}

// mockDevice implements gpucontext.Device for testing.
type mockDevice struct{}

func (m *mockDevice) Poll(wait bool) {}
func (m *mockDevice) Destroy()       {}

// mockQueue implements gpucontext.Queue for testing.
type mockQueue struct{}

// mockAdapter implements gpucontext.Adapter for testing.
type mockAdapter struct{}

// mockProvider implements gpucontext.DeviceProvider without HAL access.
type mockProvider struct{}

func (m *mockProvider) Device() gpucontext.Device             { return &mockDevice{} }
func (m *mockProvider) Queue() gpucontext.Queue               { return &mockQueue{} }
func (m *mockProvider) Adapter() gpucontext.Adapter           { return &mockAdapter{} }
func (m *mockProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }
func (m *mockProvider) AdapterInfo() gpucontext.AdapterInfo     { return gpucontext.AdapterInfo{} }

// halProvider additionally exposes HAL objects.
type halProvider struct {
	mockProvider
	device any
	queue  any
}

func (p *halProvider) HalDevice() any { return p.device }
func (p *halProvider) HalQueue() any  { return p.queue }

func TestNewFromProvider(t *testing.T) {
	device, queue := createNoopDevice(t)

	tests := []struct {
		name     string
		provider gpucontext.DeviceProvider
		wantErr  error
	}{
		{"hal provider", &halProvider{device: device, queue: queue}, nil},
		{"no hal access", &mockProvider{}, ErrProviderNotHAL},
		{"wrong device type", &halProvider{device: "device", queue: queue}, ErrProviderNotHAL},
		{"wrong queue type", &halProvider{device: device, queue: 42}, ErrProviderNotHAL},
		{"nil hal objects", &halProvider{}, ErrProviderNotHAL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewFromProvider(tt.provider)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewFromProvider() = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil {
				defer b.Destroy()
				if b.device != device || b.queue != queue {
					t.Error("provider device or queue not used")
				}
				if b.SurfaceFormat() != gputypes.TextureFormatBGRA8Unorm {
					t.Errorf("SurfaceFormat() = %v, want BGRA8Unorm", b.SurfaceFormat())
				}
			}
		})
	}
}

func TestCreateTexture(t *testing.T) {
	b := newTestBackend(t)
	tex := mustTexture(t, b, "albedo", gputypes.TextureFormatRGBA8Unorm)

	if tex.Width() != 64 || tex.Height() != 32 || tex.Format() != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("texture = %dx%d %v", tex.Width(), tex.Height(), tex.Format())
	}
	if tex.Label() != "albedo" || !tex.Owned() {
		t.Errorf("Label() = %q, Owned() = %v", tex.Label(), tex.Owned())
	}
	if tex.Raw() == nil || tex.View() == nil {
		t.Fatal("texture has no HAL texture or view")
	}
	if tex.Layout() != framegraph.LayoutUndefined {
		t.Errorf("Layout() = %v, want Undefined", tex.Layout())
	}

	b.DestroyTexture(tex)
	if !tex.IsDestroyed() || tex.Raw() != nil || tex.View() != nil {
		t.Error("texture still alive after DestroyTexture")
	}
	// Idempotent.
	b.DestroyTexture(tex)
}

func TestCreateTextureInvalidSize(t *testing.T) {
	b := newTestBackend(t)
	for _, size := range [][2]uint32{{0, 16}, {16, 0}, {0, 0}} {
		_, err := b.CreateTexture(framegraph.TextureDescriptor{
			Label: "bad", Width: size[0], Height: size[1], Format: gputypes.TextureFormatRGBA8Unorm,
		})
		if !errors.Is(err, ErrInvalidTextureSize) {
			t.Errorf("CreateTexture(%dx%d) = %v, want ErrInvalidTextureSize", size[0], size[1], err)
		}
	}
}

func TestWrapTexture(t *testing.T) {
	b := newTestBackend(t)
	raw, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "surface",
		Size:          hal.Extent3D{Width: 8, Height: 8, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		t.Fatalf("CreateTexture() = %v", err)
	}
	defer b.device.DestroyTexture(raw)
	view, err := b.device.CreateTextureView(raw, &hal.TextureViewDescriptor{Label: "surface_view"})
	if err != nil {
		t.Fatalf("CreateTextureView() = %v", err)
	}
	defer b.device.DestroyTextureView(view)

	tex := b.WrapTexture(raw, view, framegraph.TextureDescriptor{
		Label: "surface", Width: 8, Height: 8, Format: gputypes.TextureFormatBGRA8Unorm,
	})
	if tex.Owned() {
		t.Error("wrapped texture reports Owned")
	}
	if tex.Raw() != raw || tex.View() != view {
		t.Error("wrapped texture does not expose the given HAL objects")
	}
	b.DestroyTexture(tex)
	if !tex.IsDestroyed() {
		t.Error("wrapped texture not marked destroyed")
	}
}

func TestDestroyForeignTexture(t *testing.T) {
	a := newTestBackend(t)
	b := newTestBackend(t)
	tex := mustTexture(t, a, "a", gputypes.TextureFormatRGBA8Unorm)

	b.DestroyTexture(tex)
	if tex.IsDestroyed() {
		t.Error("backend destroyed a texture it did not create")
	}
}

func TestTransitionQueuesBarrier(t *testing.T) {
	b := newTestBackend(t)
	tex := mustTexture(t, b, "x", gputypes.TextureFormatRGBA8Unorm)

	steps := []framegraph.TextureLayout{framegraph.LayoutColorAttachment, framegraph.LayoutShaderRead}
	prev := framegraph.LayoutUndefined
	for i, l := range steps {
		if err := tex.Transition(framegraph.BarrierFor(prev, l)); err != nil {
			t.Fatalf("Transition(%v) = %v", l, err)
		}
		if tex.Layout() != l {
			t.Errorf("Layout() = %v, want %v", tex.Layout(), l)
		}
		if b.PendingBarriers() != i+1 {
			t.Errorf("PendingBarriers() = %d, want %d", b.PendingBarriers(), i+1)
		}
		prev = l
	}

	pending := b.takeBarriers()
	if pending[0].Usage.OldUsage != 0 || pending[0].Usage.NewUsage != gputypes.TextureUsageRenderAttachment {
		t.Errorf("first barrier usage = %+v", pending[0].Usage)
	}
	if pending[1].Usage.OldUsage != gputypes.TextureUsageRenderAttachment ||
		pending[1].Usage.NewUsage != gputypes.TextureUsageTextureBinding {
		t.Errorf("second barrier usage = %+v", pending[1].Usage)
	}
	if b.PendingBarriers() != 0 {
		t.Error("takeBarriers left barriers queued")
	}

	b.DestroyTexture(tex)
	err := tex.Transition(framegraph.BarrierFor(framegraph.LayoutShaderRead, framegraph.LayoutColorAttachment))
	if !errors.Is(err, ErrTextureDestroyed) {
		t.Errorf("Transition after destroy = %v, want ErrTextureDestroyed", err)
	}
}

func TestCreateRenderTargetValidation(t *testing.T) {
	a := newTestBackend(t)
	b := newTestBackend(t)
	foreign := mustTexture(t, a, "foreign", gputypes.TextureFormatRGBA8Unorm)
	dead := mustTexture(t, b, "dead", gputypes.TextureFormatRGBA8Unorm)
	b.DestroyTexture(dead)

	tests := []struct {
		name    string
		desc    framegraph.RenderTargetDescriptor
		wantErr error
	}{
		{"foreign color", framegraph.RenderTargetDescriptor{Label: "rt", Colors: []framegraph.Texture{foreign}}, ErrForeignResource},
		{"foreign depth", framegraph.RenderTargetDescriptor{Label: "rt", Depth: foreign}, ErrForeignResource},
		{"destroyed color", framegraph.RenderTargetDescriptor{Label: "rt", Colors: []framegraph.Texture{dead}}, ErrTextureDestroyed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.CreateRenderTarget(tt.desc)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateRenderTarget() = %v, want %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), `"rt"`) {
				t.Errorf("error %q should name the render target", err)
			}
		})
	}
}

func TestDescriptorLayout(t *testing.T) {
	b := newTestBackend(t)
	entries := []gputypes.BindGroupLayoutEntry{{
		Binding:    0,
		Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	}}
	first, err := b.CreateDescriptorLayout("uniforms", entries)
	if err != nil {
		t.Fatalf("CreateDescriptorLayout() = %v", err)
	}
	second, err := b.CreateDescriptorLayout("uniforms", entries)
	if err != nil {
		t.Fatalf("CreateDescriptorLayout() = %v", err)
	}
	if first.LayoutID() == second.LayoutID() {
		t.Error("distinct layouts share a LayoutID")
	}
	if first.Label() != "uniforms" || first.Raw() == nil {
		t.Errorf("layout = %q, raw %v", first.Label(), first.Raw())
	}

	b.DestroyDescriptorLayout(first)
	if first.Raw() != nil {
		t.Error("Raw() not nil after destroy")
	}
	b.DestroyDescriptorLayout(first)
	b.DestroyDescriptorLayout(second)
	b.DestroyDescriptorLayout(nil)
}
