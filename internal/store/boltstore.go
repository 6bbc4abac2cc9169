// internal/store/boltstore.go - BoltDB implementation of the Store contract
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var (
	RunsBucket  = []byte("runs")
	StateBucket = []byte("state")
	MetaBucket  = []byte("meta")
)

type BoltStore struct {
	db   *bbolt.DB
	path string
}

func NewBoltStore(path string) (*BoltStore, error) {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB: %w", err)
	}

	s := &BoltStore{db: db, path: path}

	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return s, nil
}

func (s *BoltStore) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{RunsBucket, StateBucket, MetaBucket}
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
}

// runKey orders run records by run_at; a reverse cursor scan yields the
// canonical run_at-descending history order.
func runKey(runAt time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%020d:%s", runAt.UnixNano(), id))
}

func (s *BoltStore) SaveRun(ctx context.Context, run *CheckRun) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.RunAt.IsZero() {
		run.RunAt = time.Now()
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(RunsBucket)

		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("failed to marshal run: %w", err)
		}

		return b.Put(runKey(run.RunAt, run.ID), data)
	})
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

func (s *BoltStore) GetRuns(ctx context.Context, filters RunFilters) ([]CheckRun, error) {
	var runs []CheckRun

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(RunsBucket).Cursor()

		// Newest first: keys sort by run_at ascending, so walk backwards.
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var run CheckRun
			if err := json.Unmarshal(v, &run); err != nil {
				continue // Skip malformed entries
			}

			if filters.CheckName != "" && run.CheckName != filters.CheckName {
				continue
			}
			if filters.Status != "" && run.Status != filters.Status {
				continue
			}
			if !filters.Since.IsZero() && run.RunAt.Before(filters.Since) {
				// Keys are time-ordered, nothing older matches either.
				break
			}

			runs = append(runs, run)

			if filters.Limit > 0 && len(runs) >= filters.Limit {
				break
			}
		}
		return nil
	})

	return runs, err
}

func (s *BoltStore) GetLatestRun(ctx context.Context, checkName string) (*CheckRun, error) {
	runs, err := s.GetRuns(ctx, RunFilters{CheckName: checkName, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// GetState returns nil without error when the check has no recorded state.
func (s *BoltStore) GetState(ctx context.Context, checkName string) (*CheckState, error) {
	var state CheckState
	found := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(StateBucket).Get([]byte(checkName))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &state)
	})

	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &state, nil
}

// UpdateState replaces the state row wholesale (upsert, not merge).
func (s *BoltStore) UpdateState(ctx context.Context, state *CheckState) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(StateBucket)

		data, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("failed to marshal state: %w", err)
		}

		return b.Put([]byte(state.CheckName), data)
	})
}

func (s *BoltStore) CleanupOlderThan(ctx context.Context, days int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	deleted := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(RunsBucket)
		c := b.Cursor()

		cutoffPrefix := []byte(fmt.Sprintf("%020d", cutoff.UnixNano()))

		var stale [][]byte
		for k, _ := c.First(); k != nil && strings.Compare(string(k), string(cutoffPrefix)) < 0; k, _ = c.Next() {
			key := make([]byte, len(k))
			copy(key, k)
			stale = append(stale, key)
		}

		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})

	return deleted, err
}

func (s *BoltStore) GetStatusCounts(ctx context.Context, checkName string, sinceDays int) (map[Status]int, error) {
	since := time.Now().AddDate(0, 0, -sinceDays)

	counts := map[Status]int{
		StatusOK:    0,
		StatusAlert: 0,
		StatusError: 0,
	}

	runs, err := s.GetRuns(ctx, RunFilters{CheckName: checkName, Since: since})
	if err != nil {
		return nil, err
	}

	for _, run := range runs {
		counts[run.Status]++
	}
	return counts, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
