// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"hash/fnv"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framegraph"
)

// Shader is a compiled shader module registered in a ShaderCache.
type Shader struct {
	id         framegraph.ShaderID
	label      string
	entryPoint string
	module     hal.ShaderModule
}

// ID implements framegraph.Shader.
func (s *Shader) ID() framegraph.ShaderID { return s.id }

// Label returns the debug label.
func (s *Shader) Label() string { return s.label }

// EntryPoint returns the WGSL entry point used when building pipelines.
func (s *Shader) EntryPoint() string { return s.entryPoint }

// Module returns the HAL shader module.
func (s *Shader) Module() hal.ShaderModule { return s.module }

// ShaderCache compiles WGSL to SPIR-V with naga and owns the resulting
// shader modules. Registering the same source twice reuses the compiled
// SPIR-V while it stays in the bounded compile cache.
type ShaderCache struct {
	device hal.Device
	log    *slog.Logger

	spirv    *lru.Cache[uint64, []uint32]
	shaders  map[framegraph.ShaderID]*Shader
	nextID   framegraph.ShaderID
	compiles int
}

func newShaderCache(device hal.Device, size int, log *slog.Logger) (*ShaderCache, error) {
	spirv, err := lru.NewWithEvict[uint64, []uint32](size, func(key uint64, _ []uint32) {
		log.Debug("native: SPIR-V evicted", "source", key)
	})
	if err != nil {
		return nil, fmt.Errorf("native: shader cache: %w", err)
	}
	return &ShaderCache{
		device:  device,
		log:     log,
		spirv:   spirv,
		shaders: make(map[framegraph.ShaderID]*Shader),
	}, nil
}

// Register compiles wgsl and creates a shader module for entryPoint. The
// returned id is never framegraph.InvalidShader.
func (c *ShaderCache) Register(label, wgsl, entryPoint string) (framegraph.ShaderID, error) {
	code, err := c.compile(wgsl)
	if err != nil {
		return framegraph.InvalidShader, fmt.Errorf("shader %q: %w", label, err)
	}
	module, err := c.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return framegraph.InvalidShader, fmt.Errorf("create shader module %q: %w", label, err)
	}
	c.nextID++
	c.shaders[c.nextID] = &Shader{
		id:         c.nextID,
		label:      label,
		entryPoint: entryPoint,
		module:     module,
	}
	c.log.Debug("native: shader registered", "label", label, "id", c.nextID, "entry", entryPoint)
	return c.nextID, nil
}

// Shader implements framegraph.ShaderCache.
func (c *ShaderCache) Shader(id framegraph.ShaderID) (framegraph.Shader, error) {
	s, ok := c.shaders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownShader, id)
	}
	return s, nil
}

// Compiles returns how many times naga was invoked. Sources served from
// the compile cache do not count.
func (c *ShaderCache) Compiles() int { return c.compiles }

// Len returns the number of registered shaders.
func (c *ShaderCache) Len() int { return len(c.shaders) }

// Destroy releases every shader module. Ids handed out before stay unknown.
func (c *ShaderCache) Destroy() {
	for id, s := range c.shaders {
		c.device.DestroyShaderModule(s.module)
		delete(c.shaders, id)
	}
	c.spirv.Purge()
}

func (c *ShaderCache) compile(wgsl string) ([]uint32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(wgsl))
	key := h.Sum64()
	if code, ok := c.spirv.Get(key); ok {
		return code, nil
	}

	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("compile WGSL: %w", err)
	}
	c.compiles++

	// SPIR-V is little-endian 32-bit words.
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	c.spirv.Add(key, code)
	return code, nil
}
