// Command watersim opens an interactive window with the pool simulation.
//
// Left-drag on the water makes ripples, left-drag on the sphere moves it,
// right-drag orbits the camera and the scroll wheel zooms. Space pauses
// and keys 1 to 4 switch the sky.
package main

import (
	"fmt"
	"os"

	"GopherWater/internal/config"
	"GopherWater/internal/engine"
	"GopherWater/internal/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Parse("watersim", os.Args[1:], nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger.Init()
	defer logger.Sync()
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		logger.Log.Warn("Keeping default log level", zap.Error(err))
	}

	if err := engine.NewDriver(*cfg).Run(); err != nil {
		logger.Log.Error("watersim stopped", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}
