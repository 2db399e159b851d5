// Command fgdemo bakes and executes a deferred rendering frame graph on
// the noop HAL device and logs what the graph decided.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/backend/native"
)

const shaderWGSL = `
@vertex
fn vs_main(@location(0) pos: vec2<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(pos, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 1.0, 1.0, 1.0);
}
`

func main() {
	var (
		width   = flag.Uint("width", 1280, "surface width")
		height  = flag.Uint("height", 720, "surface height")
		frames  = flag.Int("frames", 3, "frames to execute")
		policy  = flag.String("policy", "exclusive", "writer policy: exclusive or last-wins")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	framegraph.SetLogger(logger)

	writerPolicy, err := framegraph.ParseWriterPolicy(*policy)
	if err != nil {
		log.Fatal(err)
	}
	if err := run(uint32(*width), uint32(*height), *frames, writerPolicy, logger); err != nil {
		log.Fatalf("fgdemo: %v", err)
	}
}

func run(w, h uint32, frames int, policy framegraph.WriterPolicy, logger *slog.Logger) error {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	defer instance.Destroy()
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("no adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open adapter: %w", err)
	}
	defer openDev.Device.Destroy()

	backend, err := native.New(openDev.Device, openDev.Queue, native.WithLogger(logger))
	if err != nil {
		return err
	}
	defer backend.Destroy()

	vs, err := backend.Shaders().Register("fullscreen_vs", shaderWGSL, "vs_main")
	if err != nil {
		return err
	}
	fs, err := backend.Shaders().Register("flat_fs", shaderWGSL, "fs_main")
	if err != nil {
		return err
	}

	g := framegraph.New(backend, backend.Shaders(), backend.Pipelines(),
		framegraph.WithLabel("demo"),
		framegraph.WithWriterPolicy(policy))
	defer g.Destroy()

	surfaces := newSurfaceChain(openDev.Device, backend, w, h)
	defer surfaces.destroy()

	attachment := func(name string, format gputypes.TextureFormat) framegraph.AttachmentID {
		return g.RegisterAttachment(framegraph.AttachmentDescription{
			Name: name, Format: format, Width: w, Height: h,
		})
	}
	albedo := attachment("albedo", gputypes.TextureFormatRGBA8Unorm)
	normal := attachment("normal", gputypes.TextureFormatRGBA8Unorm)
	depth := attachment("depth", gputypes.TextureFormatDepth24PlusStencil8)
	hdr := attachment("hdr", gputypes.TextureFormatRGBA8Unorm)
	ldr := attachment("ldr", gputypes.TextureFormatRGBA8Unorm)

	first, err := surfaces.next()
	if err != nil {
		return err
	}
	swap := g.RegisterAttachment(framegraph.AttachmentDescription{Name: "swapchain", Override: first})

	vertices := gputypes.VertexBufferLayout{
		ArrayStride: 8,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
		},
	}
	draw := func(ctx framegraph.RenderPassContext) error {
		cb, err := native.CommandBufferFrom(ctx)
		if err != nil {
			return err
		}
		cb.Draw(3, 1)
		return nil
	}
	pass := func(name string) framegraph.RenderPass {
		return framegraph.NewRenderPass(name).Shaders(vs, fs).VertexBinding(vertices).OnExecute(draw)
	}

	// Registered out of order on purpose; Bake sorts them.
	g.AddPass(pass("ui").ReadColor(ldr).WriteColor(swap).Config(framegraph.PipelineConfig{Blend: true}))
	g.AddPass(pass("tonemap").ReadColor(hdr).WriteColor(ldr))
	g.AddPass(pass("lighting").ReadColor(albedo, normal).ReadDepth(depth).WriteColor(hdr))
	g.AddPass(pass("gbuffer").WriteColor(albedo, normal).WriteDepth(depth).
		Config(framegraph.PipelineConfig{DepthTest: true, DepthWrite: true}).
		ClearColor(gputypes.Color{R: 0.1, G: 0.1, B: 0.1, A: 1}))
	if policy == framegraph.WriterPolicyLastWins {
		// A second swapchain writer, drawn after ui.
		g.AddPass(pass("debug_overlay").WriteColor(swap).Config(framegraph.PipelineConfig{Blend: true}))
	}

	if err := g.Bake(); err != nil {
		return err
	}
	report(g, logger)

	for i := range frames {
		if i > 0 {
			surface, err := surfaces.next()
			if err != nil {
				return err
			}
			if err := g.UpdateAttachmentTexture(swap, surface); err != nil {
				return err
			}
		}
		if err := g.Execute(); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		logger.Info("frame executed", "frame", i)
	}
	return nil
}

func report(g *framegraph.FrameGraph, logger *slog.Logger) {
	for pos, id := range g.BakedOrder() {
		p, _ := g.Pass(id)
		inst, _ := g.PassInstance(id)
		logger.Info("pass", "position", pos, "name", p.Name, "pipeline", fmt.Sprintf("%#x", inst.PipelineHash))
	}
	for id := framegraph.AttachmentID(0); ; id++ {
		desc, ok := g.Attachment(id)
		if !ok {
			break
		}
		lt, _ := g.Lifetime(id)
		logger.Info("attachment", "name", desc.Name, "first_use", lt.FirstUse, "last_use", lt.LastUse)
	}
	s := g.Stats()
	logger.Info("stats",
		"passes", s.Passes,
		"owned_textures", s.OwnedTextures,
		"render_targets", s.OwnedRenderTargets,
		"pipelines_created", s.PipelinesCreated,
		"pipelines_reused", s.PipelinesReused)
}

// surfaceChain stands in for a swapchain: every next call hands out a
// fresh externally owned image.
type surfaceChain struct {
	device  hal.Device
	backend *native.Backend
	w, h    uint32
	images  []hal.Texture
	views   []hal.TextureView
}

func newSurfaceChain(device hal.Device, backend *native.Backend, w, h uint32) *surfaceChain {
	return &surfaceChain{device: device, backend: backend, w: w, h: h}
}

func (s *surfaceChain) next() (*native.Texture, error) {
	label := fmt.Sprintf("surface_%d", len(s.images))
	raw, err := s.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: s.w, Height: s.h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatBGRA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, fmt.Errorf("create surface: %w", err)
	}
	view, err := s.device.CreateTextureView(raw, &hal.TextureViewDescriptor{Label: label + "_view"})
	if err != nil {
		s.device.DestroyTexture(raw)
		return nil, fmt.Errorf("create surface view: %w", err)
	}
	s.images = append(s.images, raw)
	s.views = append(s.views, view)
	return s.backend.WrapTexture(raw, view, framegraph.TextureDescriptor{
		Label:  label,
		Width:  s.w,
		Height: s.h,
		Format: gputypes.TextureFormatBGRA8Unorm,
		Usage:  gputypes.TextureUsageRenderAttachment,
	}), nil
}

func (s *surfaceChain) destroy() {
	for i := range s.images {
		s.device.DestroyTextureView(s.views[i])
		s.device.DestroyTexture(s.images[i])
	}
	s.images, s.views = nil, nil
}
