//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Builds and runs the testbed demo.
func (Run) Demo() error {
	mg.Deps(Build.Engine)
	fmt.Println("Run demo...")
	if _, err := executeCmd("bin/efvk", withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the demo with validation layers and debug logging.
func (Run) Debug() error {
	mg.Deps(Build.Engine)
	if _, err := executeCmd("bin/efvk", withArgs("-config", "efvk.debug.toml"), withStream()); err != nil {
		return err
	}
	return nil
}
