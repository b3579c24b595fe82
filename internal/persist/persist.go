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

// Package persist is the optional on-disk adapter: one Badger instance
// per partition directory, with "meta" and "data" logical column
// families simulated as key prefixes within that single instance (Badger
// has no literal column-family or compaction-filter API). Expiry is
// enforced lazily by a background sweep that mimics what a compaction
// filter would do: rewriting expired meta records to a zeroed,
// version-bumped tombstone and dropping data rows whose version no
// longer matches their meta's current version.
package persist

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v2"

	"github.com/kvshard/kvshard/internal/keyhash"
	"github.com/kvshard/kvshard/internal/logging"
	"github.com/kvshard/kvshard/internal/object"
)

const (
	metaPrefix = "m:"
	dataPrefix = "d:"

	// metaRecordLen is version(2) + type(1) + encoding(1) + expire_ms(8).
	metaRecordLen = 12
)

// metaRecord is the on-disk form of an object's metadata.
type metaRecord struct {
	Version  uint16
	Type     object.Type
	Encoding object.Encoding
	ExpireMs int64
}

func encodeMeta(m metaRecord) []byte {
	b := make([]byte, metaRecordLen)
	binary.LittleEndian.PutUint16(b[0:2], m.Version)
	b[2] = byte(m.Type)
	b[3] = byte(m.Encoding)
	binary.LittleEndian.PutUint64(b[4:12], uint64(m.ExpireMs))
	return b
}

func decodeMeta(b []byte) (metaRecord, bool) {
	if len(b) != metaRecordLen {
		return metaRecord{}, false
	}
	return metaRecord{
		Version:  binary.LittleEndian.Uint16(b[0:2]),
		Type:     object.Type(b[2]),
		Encoding: object.Encoding(b[3]),
		ExpireMs: int64(binary.LittleEndian.Uint64(b[4:12])),
	}, true
}

type writeOp int

const (
	opPut writeOp = iota
	opDelete
)

type writeRequest struct {
	op       writeOp
	metaKey  []byte
	meta     metaRecord
	data     []byte
	done     chan error
}

type partition struct {
	db      *badger.DB
	mu      sync.Mutex
	pending []writeRequest
}

// Store is the persistence adapter: P partitions and a writer pool that
// round-robins across them draining whatever is pending. There is no
// reader pool: GetString reads directly on the caller's goroutine.
type Store struct {
	partitions []*partition
	hasher     *keyhash.Keyer
	counter    uint64
	log        *logging.Logger

	stop     chan struct{}
	wg       sync.WaitGroup
	sweepInt time.Duration
}

// Open creates or reopens P partitions under root, one Badger instance
// each in `<root>/partition_NNNNN/`, and starts numWriters writer workers
// plus a background expiry sweep.
func Open(root string, p int, numWriters int, hasher *keyhash.Keyer, log *logging.Logger) (*Store, error) {
	s := &Store{hasher: hasher, log: log, stop: make(chan struct{}), sweepInt: 30 * time.Second}
	for i := 0; i < p; i++ {
		dir := filepath.Join(root, fmt.Sprintf("partition_%05d", i))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		opts := badger.DefaultOptions(dir).WithLogger(nil)
		db, err := badger.Open(opts)
		if err != nil {
			return nil, err
		}
		s.partitions = append(s.partitions, &partition{db: db})
	}
	if numWriters < 1 {
		numWriters = 1
	}
	for i := 0; i < numWriters; i++ {
		s.wg.Add(1)
		go s.writerLoop()
	}
	s.wg.Add(1)
	go s.sweepLoop()
	return s, nil
}

// Close stops background workers and closes every partition's database.
func (s *Store) Close() error {
	close(s.stop)
	s.wg.Wait()
	var firstErr error
	for _, p := range s.partitions {
		if err := p.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Store) partitionFor(metaKey []byte) *partition {
	idx := s.hasher.Hash64(metaKey) % uint64(len(s.partitions))
	return s.partitions[idx]
}

func dataKey(metaKey []byte, version uint16) []byte {
	k := make([]byte, 0, len(dataPrefix)+len(metaKey)+4)
	k = append(k, dataPrefix...)
	k = append(k, metaKey...)
	var vb [4]byte
	binary.LittleEndian.PutUint32(vb[:], uint32(version))
	return append(k, vb[:]...)
}

// PutString writes obj's meta record and its data record (even for an
// empty value) for key, batched with any other pending writes to the same
// partition.
func (s *Store) PutString(key []byte, obj *object.Object) error {
	p := s.partitionFor(key)
	req := writeRequest{
		op:      opPut,
		metaKey: append([]byte(nil), key...),
		meta: metaRecord{
			Version:  obj.Version,
			Type:     obj.Type,
			Encoding: obj.Encoding,
			ExpireMs: obj.ExpireMs,
		},
		data: frameData(obj.Value),
		done: make(chan error, 1),
	}
	return s.submit(p, req)
}

// DeleteString removes key's meta record; its data rows become
// unreachable once the sweep notices the missing meta and drops them.
func (s *Store) DeleteString(key []byte) error {
	p := s.partitionFor(key)
	req := writeRequest{op: opDelete, metaKey: append([]byte(nil), key...), done: make(chan error, 1)}
	return s.submit(p, req)
}

func (s *Store) submit(p *partition, req writeRequest) error {
	p.mu.Lock()
	p.pending = append(p.pending, req)
	p.mu.Unlock()
	return <-req.done
}

// GetString reads key's current meta+data, applying lazy expiry: an
// object past its deadline is reported absent even if the sweep hasn't
// rewritten its meta record yet.
func (s *Store) GetString(key []byte) (*object.Object, bool, error) {
	p := s.partitionFor(key)
	var result *object.Object
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(append([]byte(metaPrefix), key...))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		metaBytes, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		m, ok := decodeMeta(metaBytes)
		if !ok || m.Type == object.TypeNone {
			return nil
		}
		if m.ExpireMs > 0 && object.NowMs() >= m.ExpireMs {
			return nil
		}
		dItem, err := txn.Get(dataKey(key, m.Version))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		framed, err := dItem.ValueCopy(nil)
		if err != nil {
			return err
		}
		val, err := unframeData(framed)
		if err != nil {
			return err
		}
		result = &object.Object{
			Type: m.Type, Encoding: m.Encoding, Version: m.Version,
			ExpireMs: m.ExpireMs, Key: append([]byte(nil), key...), Value: val,
		}
		return nil
	})
	if err != nil {
		if s.log != nil {
			s.log.Warnf("persist: read error for key, treating as absent: %v", err)
		}
		return nil, false, err
	}
	return result, result != nil, nil
}

func (s *Store) writerLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stop:
			return
		default:
		}
		idx := atomic.AddUint64(&s.counter, 1) % uint64(len(s.partitions))
		p := s.partitions[idx]
		p.mu.Lock()
		batch := p.pending
		p.pending = nil
		p.mu.Unlock()
		if len(batch) == 0 {
			time.Sleep(time.Millisecond)
			continue
		}
		s.flushBatch(p, batch)
	}
}

func (s *Store) flushBatch(p *partition, batch []writeRequest) {
	wb := p.db.NewWriteBatch()
	defer wb.Cancel()
	for _, req := range batch {
		switch req.op {
		case opPut:
			if err := wb.Set(append([]byte(metaPrefix), req.metaKey...), encodeMeta(req.meta)); err != nil {
				req.done <- err
				continue
			}
			if err := wb.Set(dataKey(req.metaKey, req.meta.Version), req.data); err != nil {
				req.done <- err
				continue
			}
		case opDelete:
			if err := wb.Delete(append([]byte(metaPrefix), req.metaKey...)); err != nil {
				req.done <- err
				continue
			}
		}
	}
	err := wb.Flush()
	for _, req := range batch {
		select {
		case req.done <- err:
		default:
		}
	}
}

// sweepLoop is the compaction-filter-equivalent: periodically walks every
// partition's meta keys, tombstoning (zeroing, version-bumping) any that
// have passed their expiry deadline, and drops data rows whose version no
// longer matches their meta's current version or whose meta is gone.
func (s *Store) sweepLoop() {
	defer s.wg.Done()
	t := time.NewTicker(s.sweepInt)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			for _, p := range s.partitions {
				s.sweepPartition(p)
			}
		}
	}
}

func (s *Store) sweepPartition(p *partition) {
	now := object.NowMs()
	type liveVersion struct {
		version uint16
		exists  bool
		keepAll bool // meta unreadable: keep every data row for this key
	}
	live := make(map[string]liveVersion)

	err := p.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metaPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			item := it.Item()
			key := append([]byte(nil), item.Key()...)
			metaKey := key[len(metaPrefix):]
			val, err := item.ValueCopy(nil)
			if err != nil {
				// read error: conservative, keep the row and its data rows
				live[string(metaKey)] = liveVersion{keepAll: true}
				continue
			}
			m, ok := decodeMeta(val)
			if !ok {
				continue
			}
			if m.ExpireMs > 0 && now >= m.ExpireMs {
				m.Version++
				tomb := metaRecord{Version: m.Version, Type: object.TypeNone, Encoding: object.EncodingRaw, ExpireMs: 0}
				if err := txn.Set(key, encodeMeta(tomb)); err != nil {
					return err
				}
				live[string(metaKey)] = liveVersion{version: m.Version, exists: false}
				continue
			}
			live[string(metaKey)] = liveVersion{version: m.Version, exists: true}
		}
		return nil
	})
	if err != nil {
		if s.log != nil {
			s.log.Warnf("persist: sweep meta pass failed: %v", err)
		}
		return
	}

	err = p.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(dataPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		var toDelete [][]byte
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			key := append([]byte(nil), it.Item().Key()...)
			rest := key[len(dataPrefix):]
			if len(rest) < 4 {
				continue
			}
			metaKey := rest[:len(rest)-4]
			version := binary.LittleEndian.Uint32(rest[len(rest)-4:])
			lv, ok := live[string(metaKey)]
			if ok && lv.keepAll {
				continue
			}
			if !ok || !lv.exists || uint32(lv.version) != version {
				toDelete = append(toDelete, key)
			}
		}
		for _, k := range toDelete {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil && s.log != nil {
		s.log.Warnf("persist: sweep data pass failed: %v", err)
	}
}
