package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"meetnote/internal/fileutil"
)

const (
	// DefaultProject receives transcripts that cannot be attributed.
	DefaultProject = "default"
	// DefaultRetentionDays applies when a non-positive retention is configured.
	DefaultRetentionDays = 15

	transcriptsDir   = "transcripts"
	transcriptPrefix = "meeting_"
	transcriptExt    = ".txt"
	sweepLockName    = ".sweep.lock"
	headerRule       = 60
)

var (
	ErrInvalidName          = errors.New("invalid project name")
	ErrInvalidFilename      = errors.New("invalid transcript filename")
	ErrNotFound             = errors.New("not found")
	ErrTargetExists         = errors.New("target project already exists")
	ErrConfirmationRequired = errors.New("confirmation required: pass confirm=true to delete")
)

const forbiddenNameChars = `\/:*?"<>|`

// ValidateName rejects names that are blank, contain path or shell-reserved
// characters, contain "..", or start with a dot.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	case strings.ContainsAny(name, forbiddenNameChars):
		return fmt.Errorf("%w: %q contains a reserved character", ErrInvalidName, name)
	case strings.Contains(name, ".."):
		return fmt.Errorf("%w: %q contains '..'", ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q starts with '.'", ErrInvalidName, name)
	}
	return nil
}

func validateFilename(name string) error {
	if name == "" || strings.ContainsAny(name, forbiddenNameChars) || strings.Contains(name, "..") ||
		strings.HasPrefix(name, ".") || !strings.HasSuffix(name, transcriptExt) {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return nil
}

// TranscriptInfo is one entry of a project's transcript listing.
type TranscriptInfo struct {
	Label    string `json:"label"`
	Filename string `json:"filename"`
}

// Transcript describes a transcript file that was just written.
type Transcript struct {
	Project    string
	Filename   string
	Path       string
	CapturedAt time.Time
}

// Store keeps per-project transcript collections under a root directory:
// <root>/<project>/transcripts/meeting_<dd-mm-yyyy at HH.MM>.txt
type Store struct {
	root      string
	retention time.Duration
	loc       *time.Location
	now       func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the wall clock (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates the root directory if needed and returns a store that
// prunes transcripts older than retentionDays.
func NewStore(root string, retentionDays int, opts ...Option) (*Store, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create projects root: %w", err)
	}
	s := &Store{
		root:      root,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		loc:       KolkataLocation(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the directory holding all projects.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) projectPath(name string) string {
	return filepath.Join(s.root, name)
}

// Ensure creates the project and its transcripts directory if missing.
func (s *Store) Ensure(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	path := s.projectPath(name)
	if err := os.MkdirAll(filepath.Join(path, transcriptsDir), 0o755); err != nil {
		return "", fmt.Errorf("create project %s: %w", name, err)
	}
	return path, nil
}

// Create is Ensure for explicit creation requests; an existing project is not an error.
func (s *Store) Create(name string) (string, error) {
	path, err := s.Ensure(name)
	if err != nil {
		return "", err
	}
	log.Printf("[Projects] Project ready: %s", name)
	return path, nil
}

// Rename moves a project, keeping all its transcripts.
func (s *Store) Rename(oldName, newName string) (string, error) {
	if err := ValidateName(oldName); err != nil {
		return "", err
	}
	if err := ValidateName(newName); err != nil {
		return "", err
	}
	src := s.projectPath(oldName)
	if !isDir(src) {
		return "", fmt.Errorf("project %q: %w", oldName, ErrNotFound)
	}
	dst := s.projectPath(newName)
	if _, err := os.Lstat(dst); err == nil {
		return "", fmt.Errorf("project %q: %w", newName, ErrTargetExists)
	}
	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("rename project %s -> %s: %w", oldName, newName, err)
	}
	log.Printf("[Projects] Renamed project: %s -> %s", oldName, newName)
	return dst, nil
}

// Delete removes a project and every transcript it holds. It refuses to run
// unless confirm is true.
func (s *Store) Delete(name string, confirm bool) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if !confirm {
		return ErrConfirmationRequired
	}
	path := s.projectPath(name)
	if !isDir(path) {
		return fmt.Errorf("project %q: %w", name, ErrNotFound)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("delete project %s: %w", name, err)
	}
	log.Printf("[Projects] Deleted project: %s", name)
	return nil
}

// List returns project names in lexical order. The retention sweep runs first;
// its failures are logged and never fail the listing.
func (s *Store) List() ([]string, error) {
	if n, err := s.SweepTranscripts(); err != nil {
		log.Printf("[Projects] Retention sweep failed: %v", err)
	} else if n > 0 {
		log.Printf("[Projects] Retention sweep removed %d transcript(s)", n)
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read projects root: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || ValidateName(e.Name()) != nil {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ListTranscripts returns the project's transcripts, newest first.
func (s *Store) ListTranscripts(name string) ([]TranscriptInfo, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if !isDir(s.projectPath(name)) {
		return nil, fmt.Errorf("project %q: %w", name, ErrNotFound)
	}

	dir := filepath.Join(s.projectPath(name), transcriptsDir)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []TranscriptInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read transcripts of %s: %w", name, err)
	}

	type item struct {
		name  string
		mtime time.Time
	}
	items := make([]item, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), transcriptPrefix) || !strings.HasSuffix(e.Name(), transcriptExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, item{name: e.Name(), mtime: info.ModTime()})
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].mtime.Equal(items[j].mtime) {
			return items[i].mtime.After(items[j].mtime)
		}
		return items[i].name > items[j].name
	})

	out := make([]TranscriptInfo, 0, len(items))
	for _, it := range items {
		label := strings.TrimSuffix(strings.TrimPrefix(it.name, transcriptPrefix), transcriptExt)
		out = append(out, TranscriptInfo{Label: label, Filename: it.name})
	}
	return out, nil
}

// WriteTranscript stores a rendered dialogue as a new transcript of project,
// creating the project if needed. Two writes in the same minute share a
// filename and the later one wins.
func (s *Store) WriteTranscript(project, dialogue string) (Transcript, error) {
	dir, err := s.Ensure(project)
	if err != nil {
		return Transcript{}, err
	}
	captured := s.now().In(s.loc)
	human := captured.Format("02/01/2006 at 15:04")
	filename := transcriptPrefix + captured.Format("02-01-2006 at 15.04") + transcriptExt
	path := filepath.Join(dir, transcriptsDir, filename)

	var b strings.Builder
	fmt.Fprintf(&b, "Meeting transcript — %s (%s)\n", human, s.loc.String())
	b.WriteString(strings.Repeat("-", headerRule))
	b.WriteString("\n")
	b.WriteString(dialogue)

	if err := fileutil.WriteFileAtomic(path, []byte(b.String()), 0o644); err != nil {
		return Transcript{}, fmt.Errorf("write transcript %s: %w", filename, err)
	}
	log.Printf("[Projects] Saved transcript: %s", path)
	return Transcript{Project: project, Filename: filename, Path: path, CapturedAt: captured}, nil
}

// ReadTranscript returns the full contents of one transcript file.
func (s *Store) ReadTranscript(project, filename string) (string, error) {
	if err := ValidateName(project); err != nil {
		return "", err
	}
	if err := validateFilename(filename); err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(s.projectPath(project), transcriptsDir, filename))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("transcript %s/%s: %w", project, filename, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read transcript %s/%s: %w", project, filename, err)
	}
	return string(data), nil
}

// SweepTranscripts deletes transcript files whose modification time is older
// than the retention window, across all projects. A sweep already running in
// another process makes this a no-op.
func (s *Store) SweepTranscripts() (int, error) {
	deleted := 0
	err := fileutil.WithLock(filepath.Join(s.root, sweepLockName), func() error {
		cutoff := s.now().In(s.loc).Add(-s.retention)
		projects, err := os.ReadDir(s.root)
		if err != nil {
			return fmt.Errorf("read projects root: %w", err)
		}
		for _, p := range projects {
			if !p.IsDir() {
				continue
			}
			dir := filepath.Join(s.root, p.Name(), transcriptsDir)
			files, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, f := range files {
				if f.IsDir() {
					continue
				}
				info, err := f.Info()
				if err != nil || !info.ModTime().Before(cutoff) {
					continue
				}
				if err := os.Remove(filepath.Join(dir, f.Name())); err != nil {
					log.Printf("[Projects] Could not remove expired transcript %s/%s: %v", p.Name(), f.Name(), err)
					continue
				}
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

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// KolkataLocation returns Asia/Kolkata, falling back to a fixed +05:30 zone
// named the same when the tz database is unavailable.
func KolkataLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return time.FixedZone("Asia/Kolkata", 5*3600+30*60)
	}
	return loc
}
