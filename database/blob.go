// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

const blobGcInterval = 5 * time.Minute

var ErrBlobNotFound = errors.New("blob not found")

// BlobStore stores opaque values (transaction receipts) in badger
type BlobStore struct {
	db       *badger.DB
	logger   *slog.Logger
	gcTicker *time.Ticker
	gcStopCh chan struct{}
	gcWg     sync.WaitGroup
	dataDir  string
}

// NewBlobStore creates a badger-backed blob store. Uses an in-memory
// database if dataDir is empty
func NewBlobStore(
	dataDir string,
	logger *slog.Logger,
) (*BlobStore, error) {
	b := &BlobStore{
		logger:  logger,
		dataDir: dataDir,
	}
	var blobDb *badger.DB
	var err error
	if dataDir == "" {
		badgerOpts := badger.DefaultOptions("").
			WithLogger(newBadgerLogger(logger)).
			// The default INFO logging is a bit verbose
			WithLoggingLevel(badger.WARNING).
			WithInMemory(true)
		blobDb, err = badger.Open(badgerOpts)
		if err != nil {
			return nil, err
		}
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		blobDir := filepath.Join(
			dataDir,
			"blob",
		)
		badgerOpts := badger.DefaultOptions(blobDir).
			WithLogger(newBadgerLogger(logger)).
			WithLoggingLevel(badger.WARNING).
			WithCompression(options.Snappy)
		blobDb, err = badger.Open(badgerOpts)
		if err != nil {
			return nil, err
		}
		// Value log GC only applies to disk-backed stores
		b.gcTicker = time.NewTicker(blobGcInterval)
		b.gcStopCh = make(chan struct{})
		b.gcWg.Add(1)
		go b.blobGc(b.gcTicker, b.gcStopCh)
	}
	b.db = blobDb
	return b, nil
}

func (b *BlobStore) blobGc(t *time.Ticker, stop <-chan struct{}) {
	defer b.gcWg.Done()
	for {
		select {
		case <-t.C:
		again:
			err := b.db.RunValueLogGC(0.5)
			if err == nil {
				// Run GC again if the previous pass rewrote a value log file
				goto again
			}
			if !errors.Is(err, badger.ErrNoRewrite) {
				b.logger.Warn(
					fmt.Sprintf("blob DB: GC failure: %s", err),
					"component", "database",
				)
			}
		case <-stop:
			return
		}
	}
}

// Put stores a value under the given key
func (b *BlobStore) Put(key, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Get retrieves the value stored under the given key
func (b *BlobStore) Get(key []byte) ([]byte, error) {
	var ret []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrBlobNotFound
			}
			return err
		}
		ret, err = item.ValueCopy(nil)
		return err
	})
	return ret, err
}

// Close stops the GC goroutine and closes the badger database
func (b *BlobStore) Close() error {
	if b.gcTicker != nil {
		b.gcTicker.Stop()
		close(b.gcStopCh)
		b.gcWg.Wait()
	}
	return b.db.Close()
}

// badgerLogger is a wrapper type to give our logger the expected interface
type badgerLogger struct {
	*slog.Logger
}

func newBadgerLogger(logger *slog.Logger) *badgerLogger {
	return &badgerLogger{Logger: logger}
}

func (b *badgerLogger) Infof(msg string, args ...any) {
	b.Info(fmt.Sprintf(msg, args...))
}

func (b *badgerLogger) Warningf(msg string, args ...any) {
	b.Warn(fmt.Sprintf(msg, args...))
}

func (b *badgerLogger) Debugf(msg string, args ...any) {
	b.Debug(fmt.Sprintf(msg, args...))
}

func (b *badgerLogger) Errorf(msg string, args ...any) {
	b.Error(fmt.Sprintf(msg, args...))
}
