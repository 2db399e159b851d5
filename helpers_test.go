// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
)

var errFake = errors.New("fake device failure")

// fakeTexture records every barrier it receives.
type fakeTexture struct {
	desc      TextureDescriptor
	layout    TextureLayout
	barriers  []TextureBarrier
	destroyed bool
}

func (t *fakeTexture) Width() uint32                  { return t.desc.Width }
func (t *fakeTexture) Height() uint32                 { return t.desc.Height }
func (t *fakeTexture) Format() gputypes.TextureFormat { return t.desc.Format }
func (t *fakeTexture) Layout() TextureLayout          { return t.layout }

func (t *fakeTexture) Transition(b TextureBarrier) error {
	if t.destroyed {
		return errors.New("transition on destroyed texture")
	}
	t.barriers = append(t.barriers, b)
	t.layout = b.NewLayout
	return nil
}

// newExternalTexture returns a texture the graph does not own, like a
// swapchain image.
func newExternalTexture(label string, w, h uint32) *fakeTexture {
	return &fakeTexture{desc: TextureDescriptor{
		Label:  label,
		Width:  w,
		Height: h,
		Format: gputypes.TextureFormatBGRA8Unorm,
		Usage:  gputypes.TextureUsageRenderAttachment,
	}}
}

type fakeCommandBuffer struct{ label string }

func (c *fakeCommandBuffer) Label() string { return c.label }

// fakeTarget appends begin/end events to the device journal.
type fakeTarget struct {
	dev  *fakeDevice
	desc RenderTargetDescriptor

	clearColors []gputypes.Color
	clearDepths []ClearDepth
	pipelines   []Pipeline

	beginErr  error
	endErr    error
	destroyed bool
}

func (rt *fakeTarget) BeginFrame(p Pipeline, c gputypes.Color, d ClearDepth) (CommandBuffer, error) {
	if rt.destroyed {
		return nil, errors.New("begin frame on destroyed target")
	}
	if rt.beginErr != nil {
		return nil, rt.beginErr
	}
	rt.clearColors = append(rt.clearColors, c)
	rt.clearDepths = append(rt.clearDepths, d)
	rt.pipelines = append(rt.pipelines, p)
	rt.dev.journal = append(rt.dev.journal, "begin:"+rt.desc.Label)
	return &fakeCommandBuffer{label: rt.desc.Label}, nil
}

func (rt *fakeTarget) EndFrame() error {
	rt.dev.journal = append(rt.dev.journal, "end:"+rt.desc.Label)
	return rt.endErr
}

// fakeDevice creates fake textures and targets and can be told to fail.
type fakeDevice struct {
	textures []*fakeTexture
	targets  []*fakeTarget
	journal  []string

	// failTexture makes CreateTexture fail for labels ending in it.
	failTexture string
	failTarget  bool

	destroyedTextures int
	destroyedTargets  int
}

func (d *fakeDevice) CreateTexture(desc TextureDescriptor) (Texture, error) {
	if d.failTexture != "" && strings.HasSuffix(desc.Label, d.failTexture) {
		return nil, errFake
	}
	tex := &fakeTexture{desc: desc}
	d.textures = append(d.textures, tex)
	return tex, nil
}

func (d *fakeDevice) CreateRenderTarget(desc RenderTargetDescriptor) (RenderTarget, error) {
	if d.failTarget {
		return nil, errFake
	}
	rt := &fakeTarget{dev: d, desc: desc}
	d.targets = append(d.targets, rt)
	return rt, nil
}

func (d *fakeDevice) DestroyTexture(t Texture) {
	t.(*fakeTexture).destroyed = true
	d.destroyedTextures++
}

func (d *fakeDevice) DestroyRenderTarget(rt RenderTarget) {
	rt.(*fakeTarget).destroyed = true
	d.destroyedTargets++
}

// liveTargets returns the targets that were not destroyed.
func (d *fakeDevice) liveTargets() []*fakeTarget {
	var live []*fakeTarget
	for _, rt := range d.targets {
		if !rt.destroyed {
			live = append(live, rt)
		}
	}
	return live
}

type fakeShader struct{ id ShaderID }

func (s *fakeShader) ID() ShaderID { return s.id }

// fakeShaders knows every id except InvalidShader and the missing ones.
type fakeShaders struct {
	missing map[ShaderID]bool
}

func (c *fakeShaders) Shader(id ShaderID) (Shader, error) {
	if id == InvalidShader || c.missing[id] {
		return nil, fmt.Errorf("shader %d not registered", id)
	}
	return &fakeShader{id: id}, nil
}

type fakePipeline struct {
	id  PipelineID
	req PipelineRequest
}

func (p *fakePipeline) Label() string { return p.req.Label }

type fakePipelines struct {
	pipelines []*fakePipeline
	fail      bool
}

func (c *fakePipelines) RegisterPipeline(req PipelineRequest) (PipelineID, error) {
	if c.fail {
		return InvalidPipeline, errFake
	}
	p := &fakePipeline{id: PipelineID(len(c.pipelines) + 1), req: req}
	c.pipelines = append(c.pipelines, p)
	return p.id, nil
}

func (c *fakePipelines) Pipeline(id PipelineID) (Pipeline, error) {
	if id == InvalidPipeline || int(id) > len(c.pipelines) {
		return nil, fmt.Errorf("pipeline %d not registered", id)
	}
	return c.pipelines[id-1], nil
}

type fakeLayout uint64

func (l fakeLayout) LayoutID() uint64 { return uint64(l) }

func newTestGraph(t testing.TB, opts ...Option) (*FrameGraph, *fakeDevice, *fakePipelines) {
	t.Helper()
	dev := &fakeDevice{}
	pipelines := &fakePipelines{}
	return New(dev, &fakeShaders{}, pipelines, opts...), dev, pipelines
}

func colorAttachment(name string, w, h uint32) AttachmentDescription {
	return AttachmentDescription{
		Name:   name,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Width:  w,
		Height: h,
	}
}

func depthAttachment(name string, w, h uint32) AttachmentDescription {
	return AttachmentDescription{
		Name:   name,
		Format: gputypes.TextureFormatDepth24PlusStencil8,
		Width:  w,
		Height: h,
	}
}

// testPass returns a pass with shaders the fake cache resolves.
func testPass(name string) RenderPass {
	return NewRenderPass(name).Shaders(1, 2)
}

// orderNames returns the pass names in baked order.
func orderNames(g *FrameGraph) []string {
	var names []string
	for _, id := range g.BakedOrder() {
		p, _ := g.Pass(id)
		names = append(names, p.Name)
	}
	return names
}

func mustBake(t *testing.T, g *FrameGraph) {
	t.Helper()
	if err := g.Bake(); err != nil {
		t.Fatalf("Bake() = %v", err)
	}
}

func asBakeError(t *testing.T, err error) *BakeError {
	t.Helper()
	var be *BakeError
	if !errors.As(err, &be) {
		t.Fatalf("error %v (%T) is not a *BakeError", err, err)
	}
	return be
}
