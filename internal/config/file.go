package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"Canopy3D/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

var ErrUnknownFormat = errors.New("unknown settings format")

// Load reads settings from a .json or .toml file. Fields missing from the
// file keep their Default values.
func Load(path string) (LightSettings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}
	if err := Decode(path, data, &s); err != nil {
		return Default(), err
	}
	return s, nil
}

// Decode parses data in the format implied by the file extension of name.
func Decode(name string, data []byte, s *LightSettings) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		if err := json.Unmarshal(data, s); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, s); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
	default:
		return fmt.Errorf("%s: %w", name, ErrUnknownFormat)
	}
	return nil
}

// Save writes settings in the format implied by the extension.
func Save(path string, s LightSettings) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(s, "", "  ")
	case ".toml":
		data, err = toml.Marshal(s)
	default:
		return fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Watch reloads path whenever it changes and sends the new record on out.
// The directory is watched so editors that replace the file by rename are
// seen. Parse errors are logged and the previous settings stay in effect.
// Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, out chan<- LightSettings) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s, err := Load(abs)
			if err != nil {
				logger.Log.Warn("Ignoring settings change", zap.String("path", abs), zap.Error(err))
				continue
			}
			logger.Log.Info("Settings reloaded", zap.String("path", abs))
			select {
			case out <- s:
			case <-ctx.Done():
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Log.Warn("Settings watcher error", zap.Error(err))
		}
	}
}
