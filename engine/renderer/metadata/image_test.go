package metadata

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/efvk/engine/core"
)

func TestAllocatedImageTransitionTracksLayout(t *testing.T) {
	img := NewAllocatedImage(nil, nil, ImageInfo{Width: 8, Height: 4, MipLevels: 4})

	old, err := img.Transition(0, 4, vk.ImageLayoutTransferDstOptimal)
	if err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if old != vk.ImageLayoutUndefined {
		t.Fatalf("old layout = %v, want undefined", old)
	}

	if _, err := img.Transition(0, 1, vk.ImageLayoutTransferSrcOptimal); err != nil {
		t.Fatalf("Transition(level 0) error = %v", err)
	}
	if img.Layout(0) != vk.ImageLayoutTransferSrcOptimal || img.Layout(1) != vk.ImageLayoutTransferDstOptimal {
		t.Fatalf("unexpected layouts %v %v", img.Layout(0), img.Layout(1))
	}

	// Levels 0 and 1 now disagree.
	_, err = img.Transition(0, 2, vk.ImageLayoutShaderReadOnlyOptimal)
	if !errors.Is(err, core.ErrMisuse) {
		t.Fatalf("Transition over mixed layouts error = %v, want misuse", err)
	}
	if img.Layout(1) != vk.ImageLayoutTransferDstOptimal {
		t.Fatal("failed transition must not modify tracked layouts")
	}

	if _, ok := img.UniformLayout(3, 2); ok {
		t.Fatal("UniformLayout accepted out of range levels")
	}
}

func TestAllocatedImageMipExtent(t *testing.T) {
	img := NewAllocatedImage(nil, nil, ImageInfo{Width: 10, Height: 3, MipLevels: 4})
	want := []vk.Extent2D{{Width: 10, Height: 3}, {Width: 5, Height: 1}, {Width: 2, Height: 1}, {Width: 1, Height: 1}}
	for level, w := range want {
		if got := img.MipExtent(uint32(level)); got != w {
			t.Errorf("MipExtent(%d) = %v, want %v", level, got, w)
		}
	}
}

func TestDoubleDestroyPanics(t *testing.T) {
	b := &AllocatedBuffer{Size: 16}
	b.MarkDestroyed()
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("second MarkDestroyed did not panic")
		}
	}()
	b.MarkDestroyed()
}
