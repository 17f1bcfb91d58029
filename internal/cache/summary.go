package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"meetnote/internal/fileutil"
)

// DefaultRetentionDays is used when a non-positive retention is configured.
const DefaultRetentionDays = 15

const sweepLockName = ".sweep.lock"

// Status describes the outcome of a lookup.
type Status string

const (
	StatusHit     Status = "hit"
	StatusMiss    Status = "miss"
	StatusExpired Status = "expired"
	StatusCorrupt Status = "corrupt"
)

// Entry is the on-disk form of a cached summary.
type Entry struct {
	Summary   string  `json:"summary"`
	CreatedAt string  `json:"created_at"`
	Project   *string `json:"project"`
	Filename  *string `json:"filename"`
}

// SummaryCache stores computed summaries as JSON files named by a SHA-1 of the
// transcript text, optionally scoped by project and filename.
type SummaryCache struct {
	dir       string
	retention time.Duration
	now       func() time.Time
}

// Option customizes a SummaryCache.
type Option func(*SummaryCache)

// WithClock overrides the wall clock (tests).
func WithClock(now func() time.Time) Option {
	return func(c *SummaryCache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates the cache directory if needed.
func New(dir string, retentionDays int, opts ...Option) (*SummaryCache, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	c := &SummaryCache{
		dir:       dir,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Key composes the cache key. Project and filename are prefixed only when
// given, so text-only keys from older entries stay valid.
func Key(text, project, filename string) string {
	base := text
	if project != "" {
		base = project + "::" + base
	}
	if filename != "" {
		base = filename + "::" + base
	}
	sum := sha1.Sum([]byte(base))
	return hex.EncodeToString(sum[:])
}

func (c *SummaryCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Get returns the cached summary for the scope, if present and fresh.
func (c *SummaryCache) Get(text, project, filename string) (string, bool) {
	summary, status := c.Lookup(text, project, filename)
	return summary, status == StatusHit
}

// Lookup is Get with the reason for a miss. Expired and corrupt entries are
// deleted as a side effect.
func (c *SummaryCache) Lookup(text, project, filename string) (string, Status) {
	path := c.path(Key(text, project, filename))
	info, err := os.Stat(path)
	if err != nil {
		return "", StatusMiss
	}

	if c.expired(info.ModTime()) {
		c.remove(path)
		return "", StatusExpired
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", StatusMiss
		}
		c.remove(path)
		return "", StatusCorrupt
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Printf("[Cache] Corrupt entry %s, removing: %v", filepath.Base(path), err)
		c.remove(path)
		return "", StatusCorrupt
	}
	return entry.Summary, StatusHit
}

// Put writes the summary for the scope and returns the entry's path.
func (c *SummaryCache) Put(text, summary, project, filename string) (string, error) {
	entry := Entry{
		Summary:   summary,
		CreatedAt: c.now().UTC().Format(time.RFC3339Nano),
		Project:   optional(project),
		Filename:  optional(filename),
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling cache entry: %w", err)
	}
	path := c.path(Key(text, project, filename))
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing cache file: %w", err)
	}
	return path, nil
}

// Sweep deletes every entry older than the retention window and returns how
// many were removed. Concurrent sweeps of the same directory are skipped.
func (c *SummaryCache) Sweep() (int, error) {
	deleted := 0
	err := fileutil.WithLock(filepath.Join(c.dir, sweepLockName), func() error {
		entries, err := os.ReadDir(c.dir)
		if err != nil {
			return fmt.Errorf("reading cache directory: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			info, err := e.Info()
			if err != nil || !c.expired(info.ModTime()) {
				continue
			}
			if err := os.Remove(filepath.Join(c.dir, e.Name())); err == nil {
				deleted++
			}
		}
		return nil
	})
	if errors.Is(err, fileutil.ErrLocked) {
		return 0, nil
	}
	return deleted, err
}

func (c *SummaryCache) expired(mtime time.Time) bool {
	return c.now().Sub(mtime) > c.retention
}

func (c *SummaryCache) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[Cache] Could not remove %s: %v", filepath.Base(path), err)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
