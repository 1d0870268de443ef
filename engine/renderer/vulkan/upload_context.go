package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/efvk/engine/containers"
	"github.com/spaghettifunk/efvk/engine/core"
)

// UploadContext runs one-off GPU work synchronously: record, submit, wait.
// It owns a fence (created unsignaled), a command pool and one command buffer.
// At most one immediate submit is in flight at a time.
type UploadContext struct {
	driver        Driver
	fence         *VulkanFence
	pool          *VulkanCommandPool
	commandBuffer *VulkanCommandBuffer
	timeout       uint64

	busy    bool
	submits uint64
}

// NewUploadContext creates the upload objects and registers their teardown in queue.
func NewUploadContext(driver Driver, queue *containers.DeletionQueue, timeoutNs uint64) (*UploadContext, error) {
	fence, err := driver.CreateFence(false)
	if err != nil {
		return nil, err
	}
	queue.Enqueue("upload fence", func() { driver.DestroyFence(fence) })

	pool, err := driver.CreateCommandPool(false)
	if err != nil {
		return nil, err
	}
	queue.Enqueue("upload command pool", func() { driver.DestroyCommandPool(pool) })

	commandBuffer, err := driver.AllocateCommandBuffer(pool)
	if err != nil {
		return nil, err
	}

	core.LogDebug("Upload context created.")
	return &UploadContext{
		driver:        driver,
		fence:         fence,
		pool:          pool,
		commandBuffer: commandBuffer,
		timeout:       timeoutNs,
	}, nil
}

// ImmediateSubmit records work through record, submits it and blocks until the
// GPU has finished it. When it returns nil every effect of the recorded work is
// visible. A record error aborts the submission and is returned wrapped.
func (uc *UploadContext) ImmediateSubmit(record func(cmd Commands) error) error {
	if uc.busy {
		return core.Misusef("immediate submit issued while another is in flight")
	}
	uc.busy = true
	defer func() { uc.busy = false }()

	cmd, err := uc.driver.BeginCommandBuffer(uc.commandBuffer, true)
	if err != nil {
		return err
	}
	recordErr := record(cmd)
	if err := uc.driver.EndCommandBuffer(uc.commandBuffer); err != nil {
		return errors.CombineErrors(err, recordErr)
	}
	if recordErr != nil {
		if err := uc.driver.ResetCommandPool(uc.pool); err != nil {
			return errors.CombineErrors(recordErr, err)
		}
		return errors.Wrap(recordErr, "immediate submit aborted")
	}

	if err := uc.driver.Submit(SubmitInfo{CommandBuffer: uc.commandBuffer, Fence: uc.fence}); err != nil {
		return err
	}
	if err := uc.driver.WaitForFence(uc.fence, uc.timeout); err != nil {
		return err
	}
	if err := uc.driver.ResetFence(uc.fence); err != nil {
		return err
	}
	if err := uc.driver.ResetCommandPool(uc.pool); err != nil {
		return err
	}
	uc.submits++
	return nil
}

// Submits returns the number of completed immediate submits.
func (uc *UploadContext) Submits() uint64 {
	return uc.submits
}
