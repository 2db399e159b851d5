// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package native implements the framegraph device, shader cache and
// pipeline cache on top of the gogpu/wgpu HAL.
//
// A Backend wraps a hal.Device and hal.Queue that the caller already
// opened (or that a gpucontext.DeviceProvider exposes). It never creates
// or destroys the device itself.
//
//	b, err := native.New(device, queue)
//	vs, _ := b.Shaders().Register("fullscreen", fullscreenWGSL, "vs_main")
//	fs, _ := b.Shaders().Register("tonemap", tonemapWGSL, "fs_main")
//	fg := framegraph.New(b, b.Shaders(), b.Pipelines())
//
// Layout transitions requested by the graph are queued as hal.TextureBarrier
// values and recorded at the start of the next render pass. Every EndFrame
// submits its command buffer and polls the queue until the submission
// completes, bounded by WithSubmitTimeout.
//
// Shaders are compiled from WGSL to SPIR-V with gogpu/naga. Compiled
// SPIR-V is kept in an LRU cache keyed by source hash, so registering the
// same source again (for example with another entry point) skips
// compilation.
package native
