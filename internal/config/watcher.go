package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Watcher reloads the config file on change and publishes the new
// snapshot to a Store. Only runtime-tunable fields matter to readers;
// credentials and hosts still come from the environment at startup.
type Watcher struct {
	path    string
	store   *Store
	watcher *fsnotify.Watcher
	logger  *zap.Logger
	stopCh  chan struct{}
}

func NewWatcher(path string, store *Store, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	// Watch the directory: editors replace files on save, which drops
	// a direct file watch.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch config dir: %w", err)
	}
	return &Watcher{
		path:    path,
		store:   store,
		watcher: fw,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start consumes change events until Stop is called.
func (w *Watcher) Start() {
	go func() {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(w.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				w.reload()
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("config watcher error", zap.Error(err))
			case <-w.stopCh:
				return
			}
		}
	}()
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("config reload read failed", zap.Error(err))
		return
	}
	// Validate the file parses as YAML before handing it to viper;
	// a half-written file must not clobber the running snapshot.
	var probe map[string]interface{}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		w.logger.Warn("config reload skipped: invalid yaml", zap.Error(err))
		return
	}
	fresh, err := Load()
	if err != nil {
		w.logger.Warn("config reload failed", zap.Error(err))
		return
	}
	w.store.Replace(fresh)
	w.logger.Info("config reloaded",
		zap.Int("max_search_depth", fresh.Research.MaxSearchDepth),
		zap.Bool("allow_repeat_queries", fresh.Research.AllowRepeatQueries),
	)
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
}
