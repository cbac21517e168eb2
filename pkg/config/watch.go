package config

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/fsnotify.v1"
)

// Watch reloads path whenever it changes and hands the new configuration to
// onChange. Invalid files are logged and skipped. The watch stops when ctx is
// done or the returned stop function is called.
func Watch(ctx context.Context, path string, onChange func(*Config)) (stop func() error, err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Errorf("creating config watcher: %w", err)
	}

	// editors replace files on save, so watch the directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, errors.Errorf("watching %s: %w", path, err)
	}

	logger := zerolog.Ctx(ctx).With().Str("config", path).Logger()
	target := filepath.Clean(path)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(path)
				if err == nil {
					err = cfg.ApplyEnv(nil)
				}
				if err == nil {
					err = cfg.Validate()
				}
				if err != nil {
					logger.Warn().Err(err).Msg("ignoring invalid config change")
					continue
				}
				logger.Info().Msg("config reloaded")
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn().Err(err).Msg("config watcher error")
			}
		}
	}()

	return func() error {
		err := watcher.Close()
		<-done
		return err
	}, nil
}
