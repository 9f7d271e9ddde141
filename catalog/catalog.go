// Package catalog stores metadata about finished recordings in badger.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"

	"go.aimuz.me/acap/audiocapture"
	"go.aimuz.me/acap/internal/types"
)

// ErrNotFound is returned by Get for an unknown recording.
var ErrNotFound = errors.New("catalog: recording not found")

var keyPrefix = []byte("rec/")

func key(name string) []byte {
	return append(append([]byte{}, keyPrefix...), name...)
}

// InfoFromResult returns the metadata stored for a finished session.
func InfoFromResult(res *audiocapture.Result) types.RecordingInfo {
	return types.RecordingInfo{
		Name:       filepath.Base(res.Path),
		SessionID:  res.ID,
		Device:     res.Device,
		Format:     res.Config.Format.String(),
		Channels:   res.Config.Channels,
		SampleRate: res.Config.SampleRate,
		Frames:     res.Stats.Frames,
		Dropped:    res.Stats.Dropped,
		Peak:       res.Stats.Peak,
		RMS:        res.Stats.RMS,
		Silent:     res.Stats.Silent(),
		StartedAt:  res.Started,
		ElapsedMs:  res.Elapsed.Milliseconds(),
	}
}

// Catalog is a badger-backed store of RecordingInfo keyed by file name.
type Catalog struct {
	db *badger.DB
}

// Open opens the catalog at dir. An empty dir keeps it in memory.
func Open(dir string) (*Catalog, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Put stores info under info.Name, replacing any previous entry.
func (c *Catalog) Put(info types.RecordingInfo) error {
	if info.Name == "" {
		return errors.New("catalog: empty recording name")
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal recording info: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(info.Name), data)
	})
}

// Get returns the entry for name.
func (c *Catalog) Get(name string) (types.RecordingInfo, error) {
	var info types.RecordingInfo
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &info)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return types.RecordingInfo{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return types.RecordingInfo{}, fmt.Errorf("get recording info: %w", err)
	}
	return info, nil
}

// Delete removes the entry for name. Deleting a missing entry is not an error.
func (c *Catalog) Delete(name string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(name))
	})
}

// All returns every entry keyed by name.
func (c *Catalog) All() (map[string]types.RecordingInfo, error) {
	out := make(map[string]types.RecordingInfo)
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: keyPrefix, PrefetchValues: true, PrefetchSize: 100})
		defer it.Close()

		for it.Seek(keyPrefix); it.ValidForPrefix(keyPrefix); it.Next() {
			var info types.RecordingInfo
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &info)
			}); err != nil {
				return err
			}
			out[info.Name] = info
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list recording info: %w", err)
	}
	return out, nil
}

// Prune deletes entries whose name is not in keep and returns how many were
// removed.
func (c *Catalog) Prune(keep map[string]bool) (int, error) {
	all, err := c.All()
	if err != nil {
		return 0, err
	}
	n := 0
	for name := range all {
		if keep[name] {
			continue
		}
		if err := c.Delete(name); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
