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

package persist

import (
	"encoding/binary"
	"io"

	"github.com/dgraph-io/badger/v2"

	"github.com/kvshard/kvshard/internal/object"
)

// Record is one exported key/value pair, denormalized from its on-disk
// meta+data rows so a caller never has to know about this package's
// internal key-prefix scheme.
type Record struct {
	Key   []byte
	Value *object.Object
}

// Export walks every partition's live (non-expired, non-tombstoned)
// records and calls fn once per key, in no particular order. It reads a
// snapshot of each partition independently, so a write concurrent with
// Export may or may not be reflected in its output.
func (s *Store) Export(fn func(Record) error) error {
	for _, p := range s.partitions {
		if err := exportPartition(p, fn); err != nil {
			return err
		}
	}
	return nil
}

func exportPartition(p *partition, fn func(Record) error) error {
	return p.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metaPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		now := object.NowMs()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			item := it.Item()
			key := append([]byte(nil), item.Key()[len(metaPrefix):]...)
			metaBytes, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			m, ok := decodeMeta(metaBytes)
			if !ok || m.Type == object.TypeNone {
				continue
			}
			if m.ExpireMs > 0 && now >= m.ExpireMs {
				continue
			}
			dItem, err := txn.Get(dataKey(key, m.Version))
			if err == badger.ErrKeyNotFound {
				continue
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
			rec := Record{Key: key, Value: &object.Object{
				Type: m.Type, Encoding: m.Encoding, Version: m.Version,
				ExpireMs: m.ExpireMs, Key: key, Value: val,
			}}
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteRecord serializes rec as a length-prefixed frame: a caller streams
// these back to back into an io.Writer (optionally compressed) to build a
// portable export file. The inverse is ReadRecord.
func WriteRecord(w io.Writer, rec Record) error {
	var header [2 + 1 + 1 + 8 + 4 + 4]byte
	binary.LittleEndian.PutUint16(header[0:2], rec.Value.Version)
	header[2] = byte(rec.Value.Type)
	header[3] = byte(rec.Value.Encoding)
	binary.LittleEndian.PutUint64(header[4:12], uint64(rec.Value.ExpireMs))
	binary.LittleEndian.PutUint32(header[12:16], uint32(len(rec.Key)))
	binary.LittleEndian.PutUint32(header[16:20], uint32(len(rec.Value.Value)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if _, err := w.Write(rec.Key); err != nil {
		return err
	}
	_, err := w.Write(rec.Value.Value)
	return err
}

// ReadRecord deserializes one frame written by WriteRecord. It returns
// io.EOF (unwrapped) when r is exhausted between records.
func ReadRecord(r io.Reader) (Record, error) {
	var header [2 + 1 + 1 + 8 + 4 + 4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Record{}, err
	}
	version := binary.LittleEndian.Uint16(header[0:2])
	typ := object.Type(header[2])
	enc := object.Encoding(header[3])
	expireMs := int64(binary.LittleEndian.Uint64(header[4:12]))
	keyLen := binary.LittleEndian.Uint32(header[12:16])
	valLen := binary.LittleEndian.Uint32(header[16:20])

	key := make([]byte, keyLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return Record{}, err
	}
	val := make([]byte, valLen)
	if _, err := io.ReadFull(r, val); err != nil {
		return Record{}, err
	}
	return Record{Key: key, Value: &object.Object{
		Type: typ, Encoding: enc, Version: version, ExpireMs: expireMs, Key: key, Value: val,
	}}, nil
}
