package featurecache

import (
	"context"
	"database/sql"
	"encoding/json"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"clipforge/internal/logging"
	"clipforge/internal/sampler"
)

//go:embed schema.sql
var schemaSQL string

// Store persists sampling results across runs, keyed by the asset and
// sampling-options fingerprints. Entries are immutable: a key is written
// once and never updated, so concurrent readers never observe a partially
// replaced payload.
type Store struct {
	db     *sql.DB
	path   string
	logger *logging.Logger
	fileLk *flock.Flock

	mu       sync.Mutex
	inflight map[string]*call
}

type call struct {
	done chan struct{}
	res  *sampler.Result
	err  error
}

// Open connects to (or creates) the cache database.
func Open(path string, logger *logging.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return &Store{
		db:       db,
		path:     path,
		logger:   logger,
		fileLk:   flock.New(path + ".lock"),
		inflight: make(map[string]*call),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the cached result for a key, if present.
func (s *Store) Get(ctx context.Context, assetFP, optsFP string) (*sampler.Result, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM feature_entries WHERE asset_fingerprint = ? AND options_fingerprint = ?`,
		assetFP, optsFP,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query cache: %w", err)
	}
	var res sampler.Result
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		// A corrupt row is treated as a miss; the recompute overwrites
		// nothing because entries are insert-only per key.
		s.logger.Warn("corrupt cache entry ignored", logging.String("asset_fp", assetFP), logging.Error(err))
		return nil, false, nil
	}
	return &res, true, nil
}

// Put stores a result. Existing entries win: the insert is ignored when the
// key is already present.
func (s *Store) Put(ctx context.Context, assetFP, optsFP string, res *sampler.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode cache payload: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO feature_entries (asset_fingerprint, options_fingerprint, payload, created_at)
         VALUES (?, ?, ?, ?)`,
		assetFP, optsFP, string(payload), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert cache entry: %w", err)
	}
	return nil
}

// GetOrCompute returns the cached result for a key, computing and storing it
// on a miss. In-process callers for the same key share one computation;
// across processes a file lock keeps two clipforge instances from sampling
// the same asset at the same time. The bool reports whether the value came
// from cache.
func (s *Store) GetOrCompute(ctx context.Context, assetFP, optsFP string, compute func(context.Context) (*sampler.Result, error)) (*sampler.Result, bool, error) {
	if res, ok, err := s.Get(ctx, assetFP, optsFP); err != nil || ok {
		return res, ok, err
	}

	key := assetFP + "/" + optsFP
	s.mu.Lock()
	if c, ok := s.inflight[key]; ok {
		s.mu.Unlock()
		select {
		case <-c.done:
			return c.res, true, c.err
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
	c := &call{done: make(chan struct{})}
	s.inflight[key] = c
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inflight, key)
		s.mu.Unlock()
		close(c.done)
	}()

	locked, err := s.fileLk.TryLockContext(ctx, 200*time.Millisecond)
	if err != nil {
		c.err = fmt.Errorf("acquire cache lock: %w", err)
		return nil, false, c.err
	}
	if locked {
		defer func() { _ = s.fileLk.Unlock() }()
	}

	// Another process may have filled the entry while we waited on the lock.
	if res, ok, err := s.Get(ctx, assetFP, optsFP); err != nil || ok {
		c.res, c.err = res, err
		return res, ok, err
	}

	res, err := compute(ctx)
	if err != nil {
		c.err = err
		return nil, false, err
	}
	if err := s.Put(ctx, assetFP, optsFP, res); err != nil {
		// Cache write failure degrades to uncached operation.
		s.logger.Warn("cache write failed", logging.Error(err))
	}
	c.res = res
	return res, false, nil
}

// Stats summarizes cache contents.
type Stats struct {
	Entries int64  `json:"entries"`
	Assets  int64  `json:"assets"`
	Bytes   int64  `json:"bytes"`
	Path    string `json:"path"`
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st := Stats{Path: s.path}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT asset_fingerprint), COALESCE(SUM(LENGTH(payload)), 0) FROM feature_entries`,
	).Scan(&st.Entries, &st.Assets, &st.Bytes)
	if err != nil {
		return Stats{}, fmt.Errorf("query cache stats: %w", err)
	}
	return st, nil
}

// Clear removes every entry and reports how many were dropped.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM feature_entries`)
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	s.logger.Info("feature cache cleared", logging.Int("entries", int(n)))
	return n, nil
}
