package config

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

func configFromFile(path string) (*Config, error) {
	config := Default()
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p := json.NewDecoder(f)
	if err := p.Decode(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	log.Infof("Loaded configuration: %v", spew.Sdump(config))
	return config, nil
}

// Watcher holds the current configuration and reloads it when the file
// changes.
type Watcher struct {
	Path string

	lock      sync.RWMutex
	config    *Config
	listeners []func(*Config)
}

// Load reads path. A missing file yields the defaults and is not watched.
func Load(ctx context.Context, path string) (*Watcher, error) {
	w := &Watcher{Path: path}
	config, err := configFromFile(path)
	if os.IsNotExist(err) {
		log.Warnf("Config %v not found, using defaults", path)
		w.config = Default()
		return w, nil
	}
	if err != nil {
		return nil, err
	}
	w.config = config
	go w.watch(ctx)
	return w, nil
}

func (w *Watcher) Get() *Config {
	w.lock.RLock()
	defer w.lock.RUnlock()
	return w.config
}

// OnChange registers f to be called with each reloaded configuration.
func (w *Watcher) OnChange(f func(*Config)) {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.listeners = append(w.listeners, f)
}

func (w *Watcher) set(config *Config) {
	w.lock.Lock()
	w.config = config
	listeners := append(([]func(*Config))(nil), w.listeners...)
	w.lock.Unlock()
	for _, f := range listeners {
		f(config)
	}
}

func waitForChange(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-watcher.Errors:
		return err
	case <-watcher.Events:
	}
	// Editors write in bursts; let the file settle.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Second / 10):
	}
	return ctx.Err()
}

func (w *Watcher) watch(ctx context.Context) {
	for ctx.Err() == nil {
		if err := waitForChange(ctx, w.Path); err != nil {
			if ctx.Err() == nil {
				log.Errorf("Error waiting for config change: %v", err)
				time.Sleep(time.Second)
			}
			continue
		}

		config, err := configFromFile(w.Path)
		if err != nil {
			log.Errorf("Failed to load new config: %v", err)
			continue
		}
		w.set(config)
	}
}
