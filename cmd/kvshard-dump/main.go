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

// kvshard-dump exports a persistence store's live records to an
// xz-compressed backup file, or restores one back into a store, without
// a running kvshardd process.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ulikunitz/xz"

	"github.com/kvshard/kvshard/internal/keyhash"
	"github.com/kvshard/kvshard/internal/logging"
	"github.com/kvshard/kvshard/internal/persist"
)

func main() {
	mode := flag.String("mode", "export", "export | restore")
	storageRoot := flag.String("storage", "", "persistence directory")
	partitions := flag.Int("persist-partitions", 4, "persistence partition count")
	file := flag.String("file", "", "backup file path")
	flag.Parse()

	if *storageRoot == "" || *file == "" {
		fmt.Fprintln(os.Stderr, "usage: kvshard-dump -storage <dir> -file <backup.xz> [-mode export|restore]")
		os.Exit(2)
	}

	log := logging.Default()
	store, err := persist.Open(*storageRoot, *partitions, 2, keyhash.New(), log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open store:", err)
		os.Exit(1)
	}
	defer store.Close()

	switch *mode {
	case "export":
		err = runExport(store, *file)
	case "restore":
		err = runRestore(store, *file)
	default:
		fmt.Fprintln(os.Stderr, "unknown -mode:", *mode)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, *mode+":", err)
		os.Exit(1)
	}
}

func runExport(store *persist.Store, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriterSize(f, 16*1024)
	zw, err := xz.NewWriter(bw)
	if err != nil {
		return err
	}

	var n int
	err = store.Export(func(rec persist.Record) error {
		n++
		return persist.WriteRecord(zw, rec)
	})
	if err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	fmt.Printf("exported %d records to %s\n", n, path)
	return nil
}

func runRestore(store *persist.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zr, err := xz.NewReader(bufio.NewReader(f))
	if err != nil {
		return err
	}

	var n int
	for {
		rec, err := persist.ReadRecord(zr)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := store.PutString(rec.Key, rec.Value); err != nil {
			return err
		}
		n++
	}
	fmt.Printf("restored %d records from %s\n", n, path)
	return nil
}
