package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/efvk/engine/core"
)

func TestResultCategory(t *testing.T) {
	tests := []struct {
		result vk.Result
		want   error
	}{
		{vk.ErrorOutOfDate, core.ErrSurfaceOutOfDate},
		{vk.ErrorSurfaceLost, core.ErrSurfaceLost},
		{vk.ErrorDeviceLost, core.ErrDeviceLost},
		{vk.Timeout, core.ErrTimeout},
		{vk.ErrorOutOfDeviceMemory, core.ErrAllocationFailed},
		{vk.ErrorOutOfPoolMemory, core.ErrAllocationFailed},
		{vk.ErrorFormatNotSupported, core.ErrCapabilityMissing},
		{vk.ErrorInitializationFailed, core.ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(VulkanResultString(tt.result), func(t *testing.T) {
			err := vulkanError("op", tt.result)
			if !errors.Is(err, tt.want) {
				t.Errorf("vulkanError(%s) = %v, want category %v", VulkanResultString(tt.result), err, tt.want)
			}
		})
	}
}

func TestVulkanSafeString(t *testing.T) {
	if got := VulkanSafeString(""); got != "\x00" {
		t.Errorf("empty string = %q", got)
	}
	if got := VulkanSafeString("abc"); got != "abc\x00" {
		t.Errorf("got %q", got)
	}
	if got := VulkanSafeString("abc\x00"); got != "abc\x00" {
		t.Errorf("already terminated string changed: %q", got)
	}
	if got := cString([]byte{'a', 'b', 0, 'c'}); got != "ab" {
		t.Errorf("cString = %q", got)
	}
}
