// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	// Registers the Vulkan HAL backend used by BackendVulkan.
	_ "github.com/gogpu/wgpu/hal/vulkan"
)
