package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"Canopy3D/internal/config"
	"Canopy3D/internal/effects"
	"Canopy3D/internal/engine"
	"Canopy3D/internal/logger"
	"Canopy3D/internal/renderer"

	"github.com/sqweek/dialog"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "canopy:", err)
		os.Exit(1)
	}
}

func run() error {
	model := flag.String("model", "", "path to the OBJ model (a file picker opens when empty)")
	settingsPath := flag.String("settings", "", "light settings file (.json or .toml), reloaded on change")
	preset := flag.String("preset", "", "built-in light settings: night or daylight")
	width := flag.Int("width", 1280, "window width")
	height := flag.Int("height", 720, "window height")
	debug := flag.Bool("debug", false, "debug logging and emitter markers")
	quality := flag.String("quality", "default", "bloom quality: default, high or performance")
	linear := flag.String("effect", string(effects.Off), "initial edge and base light effect")
	wash := flag.String("wash", string(effects.Off), "initial wash light effect")
	flag.Parse()

	logger.Init(*debug)
	defer logger.Sync()

	opts := engine.DefaultOptions()
	opts.Width, opts.Height = int32(*width), int32(*height)

	post, err := renderer.PostProcessPreset(*quality)
	if err != nil {
		return err
	}
	opts.PostProcess = post

	var ok bool
	if opts.LinearEffect, ok = effects.Parse(*linear); !ok {
		return fmt.Errorf("unknown effect %q", *linear)
	}
	if opts.WashEffect, ok = effects.Parse(*wash); !ok {
		return fmt.Errorf("unknown effect %q", *wash)
	}

	if *preset != "" {
		s, ok := config.Preset(*preset)
		if !ok {
			return fmt.Errorf("unknown preset %q", *preset)
		}
		opts.Settings = s
	}
	if *settingsPath != "" {
		s, err := config.Load(*settingsPath)
		if err != nil {
			return err
		}
		opts.Settings = s
	}
	if *debug {
		opts.Settings.Debug = true
	}

	path := *model
	if path == "" {
		path, err = pickModel()
		if err != nil {
			return err
		}
	}

	app := engine.NewCanopy(opts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if *settingsPath != "" {
		go func() {
			if err := config.Watch(ctx, *settingsPath, app.SettingsChan); err != nil {
				logger.Log.Warn("Settings hot reload disabled", zap.Error(err))
			}
		}()
	}

	logger.Log.Info("Canopy3D starting",
		zap.String("model", path),
		zap.String("quality", *quality),
		zap.String("effect", string(opts.LinearEffect)),
		zap.String("wash", string(opts.WashEffect)))
	return app.Run(path)
}

// pickModel asks for a model with the native file dialog. Cancelling
// starts the viewer with an empty scene.
func pickModel() (string, error) {
	path, err := dialog.File().
		Title("Open model").
		Filter("Wavefront OBJ", "obj").
		Load()
	if errors.Is(err, dialog.ErrCancelled) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("file picker: %w", err)
	}
	return path, nil
}
