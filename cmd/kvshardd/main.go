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

// kvshardd is the sharded in-memory key/value server's process
// entrypoint: it parses flags, wires a Router and optional persistence
// Store together, and serves RESP connections until a shutdown signal
// arrives.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dc0d/onexit"

	"github.com/kvshard/kvshard/internal/config"
	"github.com/kvshard/kvshard/internal/keyhash"
	"github.com/kvshard/kvshard/internal/logging"
	"github.com/kvshard/kvshard/internal/persist"
	"github.com/kvshard/kvshard/internal/router"
	"github.com/kvshard/kvshard/internal/server"
)

func main() {
	fmt.Print(`kvshard Copyright (C) 2026  The kvshard Authors
    This program comes with ABSOLUTELY NO WARRANTY;
    This is free software, and you are welcome to redistribute it
    under certain conditions;
`)

	addr := flag.String("addr", ":6399", "listen address")
	shards := flag.Int("shards", 8, "number of shards")
	queueCapacity := flag.Int("queue-capacity", 0, "per-shard task queue capacity (0 = default)")
	storageRoot := flag.String("storage", "", "persistence directory (empty disables persistence)")
	partitions := flag.Int("persist-partitions", 4, "persistence partition count")
	writers := flag.Int("persist-writers", 2, "persistence writer goroutines per process")
	maxBulk := flag.String("max-bulk-bytes", "512mb", "bulk size ceiling recorded in the config (the RESP parser enforces its own fixed 1 MiB bulk limit)")
	flag.Parse()

	log := logging.Default()

	maxBulkBytes, err := config.ParseSize(*maxBulk)
	if err != nil {
		log.Errorf("invalid -max-bulk-bytes: %v", err)
		os.Exit(1)
	}
	cfg := &config.Config{
		ListenAddr:        *addr,
		Shards:            *shards,
		QueueCapacity:     *queueCapacity,
		StorageRoot:       *storageRoot,
		PersistPartitions: *partitions,
		MaxBulkBytes:      maxBulkBytes,
	}

	hasher := keyhash.New()
	queueCap := cfg.QueueCapacity
	if queueCap <= 0 {
		queueCap = 4096
	}
	r := router.New(cfg.Shards, hasher, queueCap, log)
	r.Start()
	onexit.Register(r.Stop)

	var store *persist.Store
	if cfg.StorageRoot != "" {
		store, err = persist.Open(cfg.StorageRoot, cfg.PersistPartitions, *writers, hasher, log)
		if err != nil {
			log.Errorf("opening persistence store: %v", err)
			os.Exit(1)
		}
		onexit.Register(func() { store.Close() })
	}

	srv, err := server.New(cfg.ListenAddr, r, store, log)
	if err != nil {
		log.Errorf("listen on %s: %v", cfg.ListenAddr, err)
		os.Exit(1)
	}
	onexit.Register(func() { srv.Close() })

	log.Infof("listening on %s with %d shards", cfg.ListenAddr, cfg.Shards)

	// onexit installs its own SIGINT/SIGTERM handling and runs every
	// registered hook (router stop, store close, listener close) before
	// the process exits.
	if err := srv.Serve(); err != nil {
		log.Errorf("serve: %v", err)
	}
}
