// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func testVertexLayout() gputypes.VertexBufferLayout {
	return gputypes.VertexBufferLayout{
		ArrayStride: 8,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
		},
	}
}

func TestPipelineDescriptionHashStable(t *testing.T) {
	desc := PipelineDescription{
		VertexShader:   1,
		FragmentShader: 2,
		LayoutID:       3,
		Vertex:         VertexBinding{Buffers: []gputypes.VertexBufferLayout{testVertexLayout()}},
		Config:         PipelineConfig{Blend: true},
		ColorFormats:   []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm},
		ColorUsages:    []gputypes.TextureUsage{attachmentUsage()},
	}
	clone := desc
	clone.Vertex = VertexBinding{Buffers: []gputypes.VertexBufferLayout{testVertexLayout()}}

	if desc.Hash() != desc.Hash() {
		t.Error("Hash() not stable across calls")
	}
	if desc.Hash() != clone.Hash() {
		t.Error("equal descriptions hash differently")
	}
}

func TestPipelineDescriptionHashColorOrder(t *testing.T) {
	a := PipelineDescription{ColorFormats: []gputypes.TextureFormat{
		gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm,
	}}
	b := PipelineDescription{ColorFormats: []gputypes.TextureFormat{
		gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatRGBA8Unorm,
	}}
	if a.Hash() == b.Hash() {
		t.Error("color target order should change the hash")
	}
}

func TestPipelineDedup(t *testing.T) {
	g, _, pipelines := newTestGraph(t)
	a := g.RegisterAttachment(colorAttachment("a", 64, 64))
	b := g.RegisterAttachment(colorAttachment("b", 64, 64))
	pa := g.AddPass(testPass("first").WriteColor(a))
	pb := g.AddPass(testPass("second").WriteColor(b))
	mustBake(t, g)

	ia, _ := g.PassInstance(pa)
	ib, _ := g.PassInstance(pb)
	if ia.Pipeline != ib.Pipeline {
		t.Error("identical passes resolved to different pipelines")
	}
	if ia.PipelineHash != ib.PipelineHash || ia.PipelineHash == 0 {
		t.Errorf("pipeline hashes = %#x, %#x", ia.PipelineHash, ib.PipelineHash)
	}
	if len(pipelines.pipelines) != 1 {
		t.Errorf("registered %d pipelines, want 1", len(pipelines.pipelines))
	}
	if g.PipelineCount() != 1 {
		t.Errorf("PipelineCount() = %d, want 1", g.PipelineCount())
	}
	stats := g.Stats()
	if stats.PipelinesCreated != 1 || stats.PipelinesReused != 1 {
		t.Errorf("Stats() pipelines created %d reused %d, want 1 and 1", stats.PipelinesCreated, stats.PipelinesReused)
	}
}

func TestPipelineDistinctDescriptions(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p RenderPass, g *FrameGraph) RenderPass
	}{
		{"vertex shader", func(p RenderPass, _ *FrameGraph) RenderPass { return p.Shaders(3, 2) }},
		{"fragment shader", func(p RenderPass, _ *FrameGraph) RenderPass { return p.Shaders(1, 3) }},
		{"descriptor layout", func(p RenderPass, _ *FrameGraph) RenderPass { return p.Layout(fakeLayout(7)) }},
		{"vertex binding", func(p RenderPass, _ *FrameGraph) RenderPass { return p.VertexBinding(testVertexLayout()) }},
		{"blend", func(p RenderPass, _ *FrameGraph) RenderPass { return p.Config(PipelineConfig{Blend: true}) }},
		{"depth test", func(p RenderPass, _ *FrameGraph) RenderPass {
			return p.Config(PipelineConfig{DepthTest: true, DepthWrite: true})
		}},
		{"depth compare", func(p RenderPass, _ *FrameGraph) RenderPass {
			return p.Config(PipelineConfig{DepthCompare: gputypes.CompareFunctionAlways})
		}},
		{"push constants", func(p RenderPass, _ *FrameGraph) RenderPass {
			return p.Config(PipelineConfig{PushConstantSize: 16, PushConstantStages: ShaderStageVertex})
		}},
		{"color format", func(p RenderPass, g *FrameGraph) RenderPass {
			bgra := g.RegisterAttachment(AttachmentDescription{
				Name: "bgra", Format: gputypes.TextureFormatBGRA8Unorm, Width: 64, Height: 64,
			})
			return p.WriteColor(bgra)
		}},
		{"depth attachment", func(p RenderPass, g *FrameGraph) RenderPass {
			return p.WriteDepth(g.RegisterAttachment(depthAttachment("depth", 64, 64)))
		}},
		{"borrowed target", func(p RenderPass, g *FrameGraph) RenderPass {
			return p.WriteColor(g.RegisterAttachment(AttachmentDescription{
				Name: "swap", Override: &fakeTexture{desc: TextureDescriptor{
					Width: 64, Height: 64, Format: gputypes.TextureFormatRGBA8Unorm,
				}},
			}))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _, pipelines := newTestGraph(t)
			a := g.RegisterAttachment(colorAttachment("a", 64, 64))
			b := g.RegisterAttachment(colorAttachment("b", 64, 64))
			base := g.AddPass(testPass("base").WriteColor(a))

			variant := testPass("variant")
			if tt.name != "color format" && tt.name != "borrowed target" {
				variant = variant.WriteColor(b)
			}
			other := g.AddPass(tt.modify(variant, g))
			mustBake(t, g)

			ib, _ := g.PassInstance(base)
			io, _ := g.PassInstance(other)
			if ib.Pipeline == io.Pipeline {
				t.Error("passes with different descriptions share a pipeline")
			}
			if ib.PipelineHash == io.PipelineHash {
				t.Errorf("pipeline hashes collide: %#x", ib.PipelineHash)
			}
			if len(pipelines.pipelines) != 2 {
				t.Errorf("registered %d pipelines, want 2", len(pipelines.pipelines))
			}
		})
	}
}

func TestPipelineCachePersistsAcrossBakes(t *testing.T) {
	g, _, pipelines := newTestGraph(t)
	x := g.RegisterAttachment(colorAttachment("x", 64, 64))
	id := g.AddPass(testPass("p").WriteColor(x))
	mustBake(t, g)
	first, _ := g.PassInstance(id)

	g.AddPass(testPass("q").ReadColor(x))
	mustBake(t, g)
	second, _ := g.PassInstance(id)

	if first.Pipeline != second.Pipeline {
		t.Error("pipeline not reused across bakes")
	}
	// q writes nothing, so it needs a second pipeline.
	if len(pipelines.pipelines) != 2 {
		t.Errorf("registered %d pipelines, want 2", len(pipelines.pipelines))
	}
	if s := g.Stats(); s.PipelinesCreated != 1 || s.PipelinesReused != 1 {
		t.Errorf("second bake created %d reused %d, want 1 and 1", s.PipelinesCreated, s.PipelinesReused)
	}
}

func TestPipelineRequest(t *testing.T) {
	g, _, pipelines := newTestGraph(t)
	c := g.RegisterAttachment(colorAttachment("c", 64, 64))
	d := g.RegisterAttachment(depthAttachment("d", 64, 64))
	cfg := PipelineConfig{DepthTest: true, DepthWrite: true, Blend: true}
	g.AddPass(testPass("scene").
		WriteColor(c).
		WriteDepth(d).
		Layout(fakeLayout(9)).
		VertexBinding(testVertexLayout()).
		Config(cfg))
	mustBake(t, g)

	if len(pipelines.pipelines) != 1 {
		t.Fatalf("registered %d pipelines, want 1", len(pipelines.pipelines))
	}
	req := pipelines.pipelines[0].req
	if req.Label != "scene" {
		t.Errorf("Label = %q, want %q", req.Label, "scene")
	}
	if req.VertexShader.ID() != 1 || req.FragmentShader.ID() != 2 {
		t.Errorf("shaders = %d, %d, want 1, 2", req.VertexShader.ID(), req.FragmentShader.ID())
	}
	if req.Layout == nil || req.Layout.LayoutID() != 9 {
		t.Errorf("Layout = %v, want layout 9", req.Layout)
	}
	if len(req.ColorFormats) != 1 || req.ColorFormats[0] != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("ColorFormats = %v", req.ColorFormats)
	}
	if req.DepthFormat != gputypes.TextureFormatDepth24PlusStencil8 {
		t.Errorf("DepthFormat = %v", req.DepthFormat)
	}
	if req.Config != cfg {
		t.Errorf("Config = %+v, want %+v", req.Config, cfg)
	}
	if len(req.VertexBinding.Buffers) != 1 {
		t.Errorf("VertexBinding has %d buffers, want 1", len(req.VertexBinding.Buffers))
	}
}

func TestPipelineOverride(t *testing.T) {
	g, _, pipelines := newTestGraph(t)
	override := &fakePipeline{id: 99}
	id := g.AddPass(testPass("custom").PipelineOverride(override))
	mustBake(t, g)

	inst, _ := g.PassInstance(id)
	if inst.Pipeline != Pipeline(override) {
		t.Error("override pipeline not used verbatim")
	}
	if inst.PipelineHash != 0 {
		t.Errorf("PipelineHash = %#x, want 0 for overrides", inst.PipelineHash)
	}
	if len(pipelines.pipelines) != 0 || g.PipelineCount() != 0 {
		t.Error("override pipeline should bypass the cache")
	}
}
