// Package drafts keeps in-progress wizard sessions in a badger store so an
// operator can pick a session up again after the service restarts.
package drafts

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/dgraph-io/badger/v4"

	"github.com/ahmadzakiakmal/shiptrack/wizard"
)

const keyPrefix = "draft:"

var ErrNotFound = errors.New("draft not found")

// Options controls where and how long drafts are kept
type Options struct {
	// Dir is the badger directory; empty keeps drafts in memory only
	Dir string
	// TTL expires drafts nobody touched for that long; zero keeps them forever
	TTL time.Duration
}

// Draft is a stored session
type Draft struct {
	ID       string          `json:"id"`
	Snapshot wizard.Snapshot `json:"snapshot"`
}

// Store is a badger-backed draft table
type Store struct {
	db     *badger.DB
	ttl    time.Duration
	logger cmtlog.Logger
}

// Open opens (or creates) the draft store
func Open(opts Options, logger cmtlog.Logger) (*Store, error) {
	if logger == nil {
		logger = cmtlog.NewNopLogger()
	}
	bopts := badger.DefaultOptions(opts.Dir)
	if opts.Dir == "" {
		bopts = bopts.WithInMemory(true)
	}
	bopts = bopts.WithLogger(badgerLogger{logger.With("module", "badger")})

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("opening badger database: %w", err)
	}
	logger.Info("Draft store opened", "dir", opts.Dir, "in_memory", opts.Dir == "", "ttl", opts.TTL)
	return &Store{db: db, ttl: opts.TTL, logger: logger}, nil
}

// Close releases the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

func draftKey(id string) []byte {
	return []byte(keyPrefix + id)
}

// Save writes the snapshot for a session, replacing any earlier one
func (s *Store) Save(id string, snap wizard.Snapshot) error {
	value, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding draft %s: %w", id, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(draftKey(id), value)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Load returns the stored snapshot of a session
func (s *Store) Load(id string) (wizard.Snapshot, error) {
	var snap wizard.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(draftKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if err != nil {
		return wizard.Snapshot{}, err
	}
	return snap, nil
}

// Delete removes a draft; deleting a missing draft is not an error
func (s *Store) Delete(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(draftKey(id))
	})
}

// List returns every stored draft in key order
func (s *Store) List() ([]Draft, error) {
	var out []Draft
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id := strings.TrimPrefix(string(item.Key()), keyPrefix)
			var snap wizard.Snapshot
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &snap)
			})
			if err != nil {
				s.logger.Error("Skipping unreadable draft", "id", id, "err", err)
				continue
			}
			out = append(out, Draft{ID: id, Snapshot: snap})
		}
		return nil
	})
	return out, err
}

// badgerLogger routes badger's printf-style logging into the service logger
type badgerLogger struct {
	logger cmtlog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, args...)), "level", "warning")
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
