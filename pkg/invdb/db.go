// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

// Package invdb persists the last successfully loaded inventory to LevelDB
// so the daemon can come up and serve diagnoses when the remote sheet is
// unreachable at start. A refresh that fails never touches the snapshot.
package invdb

import (
	"fmt"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/wingedpig/rfdiag/pkg/model"
)

// LevelDB keys
const (
	keyRecords   = "snap:records"
	keySource    = "meta:source"
	keyFetchedAt = "meta:fetched_at"
	keyCount     = "meta:count"
)

// SnapshotInfo describes the stored snapshot.
type SnapshotInfo struct {
	Source    string
	FetchedAt time.Time
	Records   int
}

// DB wraps a LevelDB instance holding one inventory snapshot
type DB struct {
	db     *leveldb.DB
	mu     sync.RWMutex
	path   string
	closed bool
}

// Open opens or creates the snapshot store at the specified path
func Open(path string) (*DB, error) {
	opts := &opt.Options{
		Compression: opt.SnappyCompression,
	}

	db, err := leveldb.OpenFile(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	return &DB{
		db:   db,
		path: path,
	}, nil
}

// Close closes the store
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return model.ErrStoreClosed
	}

	d.closed = true
	return d.db.Close()
}

// IsClosed returns true if the store is closed
func (d *DB) IsClosed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.closed
}

// Path returns the store path
func (d *DB) Path() string {
	return d.path
}

// SaveSnapshot atomically replaces the stored snapshot with the given record
// set and its provenance.
func (d *DB) SaveSnapshot(recs []model.TopologyRecord, source string, fetchedAt time.Time) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return model.ErrStoreClosed
	}

	data, err := msgpack.Marshal(recs)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	batch := new(leveldb.Batch)
	batch.Put([]byte(keyRecords), data)
	batch.Put([]byte(keySource), []byte(source))
	batch.Put([]byte(keyFetchedAt), []byte(fetchedAt.Format(time.RFC3339)))
	batch.Put([]byte(keyCount), []byte(fmt.Sprintf("%d", len(recs))))

	if err := d.db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the stored record set and its provenance, or
// model.ErrNoSnapshot when nothing has been saved yet.
func (d *DB) LoadSnapshot() ([]model.TopologyRecord, SnapshotInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, SnapshotInfo{}, model.ErrStoreClosed
	}

	data, err := d.db.Get([]byte(keyRecords), nil)
	if err == leveldb.ErrNotFound {
		return nil, SnapshotInfo{}, model.ErrNoSnapshot
	}
	if err != nil {
		return nil, SnapshotInfo{}, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var recs []model.TopologyRecord
	if err := msgpack.Unmarshal(data, &recs); err != nil {
		return nil, SnapshotInfo{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	info := SnapshotInfo{Records: len(recs)}
	if v, err := d.db.Get([]byte(keySource), nil); err == nil {
		info.Source = string(v)
	}
	if v, err := d.db.Get([]byte(keyFetchedAt), nil); err == nil {
		if t, err := time.Parse(time.RFC3339, string(v)); err == nil {
			info.FetchedAt = t
		}
	}

	return recs, info, nil
}
