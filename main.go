/*
Demo application: opens a window and drives the efvk renderer with the testbed game.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/efvk/engine"
	"github.com/spaghettifunk/efvk/engine/core"
	"github.com/spaghettifunk/efvk/testbed"
)

func main() {
	configPath := flag.String("config", "", "path to the engine configuration (default efvk.toml)")
	flag.Parse()

	tb := testbed.NewTestGame()

	e, err := engine.New(tb.Game, engine.WithConfigFile(*configPath))
	if err != nil {
		core.LogFatal("failed to create engine: %s", err)
	}

	if err := e.Initialize(); err != nil {
		core.LogFatal("failed to initialize engine: %s", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// start shutdown goroutine
	go func() {
		// capture sigterm and other system call here
		<-sigCh
		_ = e.Shutdown()
	}()

	// run engine
	if err := e.Run(); err != nil {
		core.LogError("engine stopped with error: %s", err)
		os.Exit(1)
	}
}
