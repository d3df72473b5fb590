// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/mapmark/internal/logging"
	"github.com/tomtom215/mapmark/internal/models"
)

const backendBadger = "badger"

// BadgerConfig configures the persistent store.
type BadgerConfig struct {
	// Path is the directory where BadgerDB stores its files.
	Path string

	// InMemory runs BadgerDB without touching disk. Path is ignored.
	InMemory bool

	// SyncWrites forces fsync after every write.
	SyncWrites bool

	// Compression enables Snappy block compression.
	Compression bool

	// GCInterval is the time between value log garbage collection runs.
	GCInterval time.Duration

	// GCRatio is the discard ratio passed to RunValueLogGC.
	GCRatio float64

	// CloseTimeout bounds how long Close waits for BadgerDB.
	CloseTimeout time.Duration

	// MemTableSize and ValueLogFileSize override BadgerDB defaults when set.
	MemTableSize     int64
	ValueLogFileSize int64
}

// DefaultBadgerConfig returns production defaults for a store at path.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:         path,
		SyncWrites:   true,
		Compression:  true,
		GCInterval:   10 * time.Minute,
		GCRatio:      0.5,
		CloseTimeout: 30 * time.Second,
	}
}

// ChangeOp names the kind of write recorded in a Change.
type ChangeOp string

const (
	ChangeSet    ChangeOp = "set"
	ChangeAdd    ChangeOp = "add"
	ChangeUpdate ChangeOp = "update"
	ChangeDelete ChangeOp = "delete"
)

// Change describes one committed write.
type Change struct {
	Project string      `json:"project"`
	Kind    models.Kind `json:"kind"`
	ID      string      `json:"id"`
	Op      ChangeOp    `json:"op"`
	At      time.Time   `json:"at"`
}

// Collection returns the collection the change applies to.
func (c Change) Collection() Collection {
	return Collection{Project: c.Project, Kind: c.Kind}
}

// ChangeSink receives every committed write, typically to fan it out to
// other server replicas.
type ChangeSink interface {
	PublishChange(ctx context.Context, ch Change) error
}

// BadgerStore persists documents in BadgerDB. Keys are
// "doc\x00<collection path>\x00<id>" and values are the JSON fields.
type BadgerStore struct {
	db     *badger.DB
	config BadgerConfig
	hub    *hub
	logger zerolog.Logger

	// writeMu serializes commits so listeners observe changes in commit order.
	writeMu sync.Mutex

	mu     sync.RWMutex
	closed bool
	sink   ChangeSink
}

var _ Store = (*BadgerStore)(nil)

// OpenBadger opens (or creates) a store.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger path is required")
	}
	if cfg.GCRatio <= 0 || cfg.GCRatio >= 1 {
		cfg.GCRatio = 0.5
	}
	if cfg.CloseTimeout == 0 {
		cfg.CloseTimeout = 30 * time.Second
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	if cfg.MemTableSize > 0 {
		opts.MemTableSize = cfg.MemTableSize
	}
	if cfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = cfg.ValueLogFileSize
	}
	if cfg.Compression {
		opts.Compression = options.Snappy
	}

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		config: cfg,
		hub:    newHub(backendBadger),
		logger: logging.WithComponent("docstore").With().Str("backend", backendBadger).Logger(),
	}

	s.logger.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("Document store opened")
	return s, nil
}

// SetChangeSink installs the receiver of committed writes.
func (s *BadgerStore) SetChangeSink(sink ChangeSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

func collectionPrefix(c Collection) []byte {
	return []byte("doc\x00" + c.Path() + "\x00")
}

func docKey(c Collection, id string) []byte {
	return append(collectionPrefix(c), id...)
}

func (s *BadgerStore) check(ctx context.Context, c Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func readFields(item *badger.Item) (Fields, error) {
	var f Fields
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &f)
	})
	return f, err
}

func (s *BadgerStore) load(txn *badger.Txn, c Collection, id string) (Fields, error) {
	item, err := txn.Get(docKey(c, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s/%s: %w", c, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	f, err := readFields(item)
	if err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return f, nil
}

func (s *BadgerStore) scan(ctx context.Context, txn *badger.Txn, c Collection, filters []Filter) ([]Document, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	it := txn.NewIterator(opts)
	defer it.Close()

	var docs []Document
	prefix := collectionPrefix(c)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		item := it.Item()
		f, err := readFields(item)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", string(item.Key())).Msg("Skipping malformed document")
			continue
		}
		if matches(f, filters) {
			docs = append(docs, Document{ID: string(item.Key()[len(prefix):]), Fields: f})
		}
	}
	if docs == nil {
		docs = []Document{}
	}
	return docs, nil
}

// errUnchanged aborts a write transaction that has nothing to commit.
var errUnchanged = errors.New("unchanged")

// write runs fn in an update transaction, then notifies listeners and the
// change sink.
func (s *BadgerStore) write(ctx context.Context, c Collection, id string, op ChangeOp, fn func(txn *badger.Txn) error) error {
	s.writeMu.Lock()
	if err := s.db.Update(fn); err != nil {
		s.writeMu.Unlock()
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	if s.hub.watching(c) {
		var docs []Document
		err := s.db.View(func(txn *badger.Txn) error {
			var err error
			docs, err = s.scan(context.Background(), txn, c, nil)
			return err
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("collection", c.Path()).Msg("Snapshot for subscribers failed")
		} else {
			s.hub.publish(c, docs)
		}
	}
	s.writeMu.Unlock()

	s.mu.RLock()
	sink := s.sink
	s.mu.RUnlock()
	if sink != nil {
		ch := Change{Project: c.Project, Kind: c.Kind, ID: id, Op: op, At: time.Now().UTC()}
		if err := sink.PublishChange(ctx, ch); err != nil {
			s.logger.Warn().Err(err).Str("collection", c.Path()).Str("id", id).Msg("Change publish failed")
		}
	}
	return nil
}

func putFields(txn *badger.Txn, key []byte, f Fields) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	return txn.SetEntry(badger.NewEntry(key, data))
}

// Get implements Store.
func (s *BadgerStore) Get(ctx context.Context, c Collection, id string) (doc Document, err error) {
	start := time.Now()
	defer func() { observe(backendBadger, "get", start, err) }()
	if err = s.check(ctx, c); err != nil {
		return Document{}, err
	}

	err = s.db.View(func(txn *badger.Txn) error {
		f, err := s.load(txn, c, id)
		if err != nil {
			return err
		}
		doc = Document{ID: id, Fields: f}
		return nil
	})
	return doc, err
}

// Set implements Store.
func (s *BadgerStore) Set(ctx context.Context, c Collection, id string, fields Fields) (err error) {
	start := time.Now()
	defer func() { observe(backendBadger, "set", start, err) }()
	if err = s.check(ctx, c); err != nil {
		return err
	}
	patch, err := normalize(fields)
	if err != nil {
		return err
	}

	return s.write(ctx, c, id, ChangeSet, func(txn *badger.Txn) error {
		cur, err := s.load(txn, c, id)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		return putFields(txn, docKey(c, id), merge(cur, patch))
	})
}

// Query implements Store.
func (s *BadgerStore) Query(ctx context.Context, c Collection, filters ...Filter) (docs []Document, err error) {
	start := time.Now()
	defer func() { observe(backendBadger, "query", start, err) }()
	if err = s.check(ctx, c); err != nil {
		return nil, err
	}
	filters, err = normalizeFilters(filters)
	if err != nil {
		return nil, err
	}

	err = s.db.View(func(txn *badger.Txn) error {
		var err error
		docs, err = s.scan(ctx, txn, c, filters)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c, err)
	}
	return docs, nil
}

// Add implements Store.
func (s *BadgerStore) Add(ctx context.Context, c Collection, fields Fields) (id string, err error) {
	start := time.Now()
	defer func() { observe(backendBadger, "add", start, err) }()
	if err = s.check(ctx, c); err != nil {
		return "", err
	}
	f, err := normalize(fields)
	if err != nil {
		return "", err
	}

	id = uuid.Must(uuid.NewV7()).String()
	err = s.write(ctx, c, id, ChangeAdd, func(txn *badger.Txn) error {
		return putFields(txn, docKey(c, id), merge(nil, f))
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Update implements Store.
func (s *BadgerStore) Update(ctx context.Context, c Collection, id string, fields Fields) (err error) {
	start := time.Now()
	defer func() { observe(backendBadger, "update", start, err) }()
	if err = s.check(ctx, c); err != nil {
		return err
	}
	patch, err := normalize(fields)
	if err != nil {
		return err
	}

	return s.write(ctx, c, id, ChangeUpdate, func(txn *badger.Txn) error {
		cur, err := s.load(txn, c, id)
		if err != nil {
			return err
		}
		return putFields(txn, docKey(c, id), merge(cur, patch))
	})
}

// Delete implements Store.
func (s *BadgerStore) Delete(ctx context.Context, c Collection, id string) (err error) {
	start := time.Now()
	defer func() { observe(backendBadger, "delete", start, err) }()
	if err = s.check(ctx, c); err != nil {
		return err
	}

	return s.write(ctx, c, id, ChangeDelete, func(txn *badger.Txn) error {
		key := docKey(c, id)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return errUnchanged
		} else if err != nil {
			return fmt.Errorf("get document: %w", err)
		}
		return txn.Delete(key)
	})
}

// Subscribe implements Store.
func (s *BadgerStore) Subscribe(ctx context.Context, c Collection, l Listener) (Subscription, error) {
	if err := s.check(ctx, c); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var docs []Document
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		docs, err = s.scan(ctx, txn, c, nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("initial snapshot %s: %w", c, err)
	}
	sub, err := s.hub.register(ctx, c, l, docs)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// RunGC runs value log garbage collection until nothing is left to rewrite.
func (s *BadgerStore) RunGC() (err error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	s.mu.RUnlock()

	start := time.Now()
	defer func() { observeGC(start, err) }()

	for {
		err := s.db.RunValueLogGC(s.config.GCRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Size returns the LSM and value log sizes in bytes.
func (s *BadgerStore) Size() (lsm, vlog int64) {
	return s.db.Size()
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	timeout := s.config.CloseTimeout
	s.mu.Unlock()

	s.hub.close()
	s.logger.Info().Msg("Closing document store")

	done := make(chan error, 1)
	go func() {
		done <- s.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		s.logger.Info().Msg("Document store closed")
		return nil
	case <-time.After(timeout):
		s.logger.Warn().Dur("timeout", timeout).Msg("BadgerDB close timed out")
		return fmt.Errorf("badgerdb close timeout after %v", timeout)
	}
}
