// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import "errors"

// Backend errors.
var (
	// ErrNilDevice is returned when a backend is created without a HAL device.
	ErrNilDevice = errors.New("native: HAL device is nil")

	// ErrNilQueue is returned when a backend is created without a HAL queue.
	ErrNilQueue = errors.New("native: HAL queue is nil")

	// ErrProviderNotHAL is returned when a device provider does not expose
	// HalDevice() and HalQueue().
	ErrProviderNotHAL = errors.New("native: provider does not expose HAL types")

	// ErrUnknownShader is returned for shader ids the cache never handed out.
	ErrUnknownShader = errors.New("native: unknown shader")

	// ErrUnknownPipeline is returned for pipeline ids the cache never handed out.
	ErrUnknownPipeline = errors.New("native: unknown pipeline")

	// ErrTextureDestroyed is returned when operating on a destroyed texture.
	ErrTextureDestroyed = errors.New("native: texture has been destroyed")

	// ErrForeignResource is returned when a resource created by another
	// backend is passed in.
	ErrForeignResource = errors.New("native: resource was not created by this backend")

	// ErrFrameInProgress is returned by BeginFrame when the previous frame
	// of the same render target was not ended.
	ErrFrameInProgress = errors.New("native: frame already in progress")

	// ErrNoFrame is returned by EndFrame without a matching BeginFrame.
	ErrNoFrame = errors.New("native: no frame in progress")

	// ErrSubmitTimeout is wrapped into framegraph.ErrDeviceLost when a
	// submission does not complete within the submit timeout.
	ErrSubmitTimeout = errors.New("native: submission not completed in time")

	// ErrInvalidTextureSize is returned when texture dimensions are zero.
	ErrInvalidTextureSize = errors.New("native: invalid texture size")
)
