// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package framegraph implements a render dependency graph (frame graph)
// on top of the gogpu HAL.
//
// # Overview
//
// A frame is described declaratively: logical image attachments are
// registered once, and render passes declare which attachments they read
// and write. Bake turns that description into
//
//   - an execution order in which every write precedes the reads that
//     depend on it,
//   - physical textures, deduplicated pipelines and render targets,
//
// and Execute replays the order every frame, inserting the layout
// transitions (barriers) each pass needs before invoking its callback.
//
// # Quick Start
//
//	fg := framegraph.New(device, shaders, pipelines)
//
//	gbuf := fg.RegisterAttachment(framegraph.AttachmentDescription{
//	    Name: "albedo", Format: gputypes.TextureFormatRGBA8Unorm, Width: w, Height: h,
//	})
//	swap := fg.RegisterAttachment(framegraph.AttachmentDescription{
//	    Name: "swapchain", Format: surfaceFormat, Width: w, Height: h, Override: surfaceTex,
//	})
//
//	fg.AddPass(framegraph.NewRenderPass("geometry").
//	    WriteColor(gbuf).
//	    Shaders(geomVS, geomFS).
//	    OnExecute(drawScene))
//	fg.AddPass(framegraph.NewRenderPass("present").
//	    ReadColor(gbuf).
//	    WriteColor(swap).
//	    Shaders(fullscreenVS, presentFS).
//	    OnExecute(drawFullscreen))
//
//	if err := fg.Bake(); err != nil {
//	    // err is a *BakeError; errors.Is(err, framegraph.ErrCycleDetected) etc.
//	}
//
//	for running {
//	    _ = fg.UpdateAttachmentTexture(swap, nextSurfaceTexture())
//	    if err := fg.Execute(); errors.Is(err, framegraph.ErrNeedsRebuild) {
//	        // recreate the surface, update attachments, Bake again
//	    }
//	}
//
// # Ownership
//
// The graph owns the textures and render targets it creates and releases
// them on the next Bake or on Destroy. Override textures, override render
// targets and override pipelines are borrowed and never released.
// Pipelines registered through the PipelineCache belong to that cache.
//
// # Concurrency
//
// A FrameGraph is not safe for concurrent use. RegisterAttachment, AddPass,
// UpdateAttachmentTexture, Bake, Execute and Destroy must be serialized by
// the caller.
package framegraph
