/*
Copyright (C) 2026  The kvshard Authors

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package config holds the server's flat settings struct and a watcher
// that reloads the subset of it safe to change without restarting shards.
package config

import (
	"sync"
	"sync/atomic"

	"github.com/docker/go-units"
	"github.com/fsnotify/fsnotify"

	"github.com/kvshard/kvshard/internal/logging"
)

// Config is the full set of settings a kvshardd process starts with.
// Shards, listen address, queue capacity, storage root, and partition
// count are fixed for the process lifetime;
// MaxBulkBytes, MaxRawValueBytes, and LogLevel may be changed by Watch.
type Config struct {
	ListenAddr       string
	Shards           int
	QueueCapacity    int
	StorageRoot      string
	PersistPartitions int

	MaxBulkBytes     int64
	MaxRawValueBytes int64
	LogLevel         int32 // atomically updated by Watch; read via LoadLogLevel
}

// ParseSize parses a human-readable size string ("1mb", "512k") the way
// an operator would expect a size flag to read.
func ParseSize(s string) (int64, error) {
	return units.RAMInBytes(s)
}

// LoadLogLevel reads the current log level, safe for concurrent use
// alongside Watch's reload.
func (c *Config) LoadLogLevel() logging.Level {
	return logging.Level(atomic.LoadInt32(&c.LogLevel))
}

func (c *Config) storeLogLevel(l logging.Level) {
	atomic.StoreInt32(&c.LogLevel, int32(l))
}

// Watch reloads the runtime-safe subset of Config whenever the file at
// path changes, without touching Shards, ListenAddr, or QueueCapacity.
// parse turns the file's bytes into the reloadable values; it is the
// caller's job (not this package's) to pick a config file format.
type Watch struct {
	cfg   *Config
	fw    *fsnotify.Watcher
	log   *logging.Logger
	mu    sync.Mutex
	parse func(path string) (maxBulk, maxRaw int64, level logging.Level, err error)
}

// NewWatch starts watching path for changes, applying parse's result to
// cfg on every write event. Call Close when done.
func NewWatch(cfg *Config, path string, log *logging.Logger, parse func(path string) (int64, int64, logging.Level, error)) (*Watch, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}
	w := &Watch{cfg: cfg, fw: fw, log: log, parse: parse}
	go w.run(path)
	return w, nil
}

func (w *Watch) run(path string) {
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload(path)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			if w.log != nil {
				w.log.Warnf("config watch error: %v", err)
			}
		}
	}
}

func (w *Watch) reload(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	maxBulk, maxRaw, level, err := w.parse(path)
	if err != nil {
		if w.log != nil {
			w.log.Warnf("config reload failed, keeping prior values: %v", err)
		}
		return
	}
	atomic.StoreInt64(&w.cfg.MaxBulkBytes, maxBulk)
	atomic.StoreInt64(&w.cfg.MaxRawValueBytes, maxRaw)
	w.cfg.storeLogLevel(level)
	if w.log != nil {
		w.log.Infof("config reloaded from %s", path)
	}
}

// Close stops the watcher.
func (w *Watch) Close() error {
	return w.fw.Close()
}
