package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ResearchDigest/internal/domain"
	"ResearchDigest/internal/ports"
)

// legacyKeys maps the flat per-category lists of older state files.
var legacyKeys = map[string]domain.Category{
	"tracked_hn":   domain.CategoryNews,
	"tracked_gh":   domain.CategoryGitHub,
	"tracked_conf": domain.CategoryConference,
	"tracked_blog": domain.CategoryBlog,
	"tracked":      domain.CategoryArxiv,
}

type stateFile struct {
	SeenByCategory map[string][]string `json:"seenByCategory"`
	LastRun        *string             `json:"lastRun"`
}

// ErrReadOnly is returned by Persist on a store opened for inspection.
var ErrReadOnly = errors.New("tracking store is read-only")

// FileStore keeps the tracking state in a single JSON file.
type FileStore struct {
	path     string
	logger   *slog.Logger
	readOnly bool
	readFile func(string) ([]byte, error)

	mu sync.Mutex
	// unreadable holds the last read failure; the file must not be replaced
	// while it is set.
	unreadable error
}

var _ ports.TrackingStore = (*FileStore)(nil)

// NewFileStore binds the store to a file path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger, readFile: os.ReadFile}
}

// NewReadOnlyFileStore opens the state file for inspection. Load never moves
// a corrupt file aside and Persist always fails.
func NewReadOnlyFileStore(path string, logger *slog.Logger) *FileStore {
	s := NewFileStore(path, logger)
	s.readOnly = true
	return s
}

// Path is the location of the state file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the state file. A missing file is a first run and a corrupt one
// is moved aside. A file that exists but cannot be read also yields an empty
// state, and Persist then refuses to replace it.
func (s *FileStore) Load(_ context.Context) *domain.TrackingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unreadable = nil

	raw, err := s.readFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("no tracking state yet, starting empty", "path", s.path)
		return domain.NewTrackingState()
	}
	if err != nil {
		s.unreadable = err
		s.logger.Error("cannot read tracking state, starting empty and keeping the file", "path", s.path, "error", err)
		return domain.NewTrackingState()
	}

	state, err := decodeState(raw)
	if err != nil {
		s.logger.Warn("tracking state is corrupt, starting empty", "path", s.path, "error", err)
		if !s.readOnly {
			s.quarantine()
		}
		return domain.NewTrackingState()
	}

	s.logger.Debug("tracking state loaded", "path", s.path, "identifiers", state.Len())
	return state
}

// Persist writes the full state through a temporary file and an atomic rename.
func (s *FileStore) Persist(_ context.Context, state *domain.TrackingState) error {
	if state == nil {
		return fmt.Errorf("persist tracking state: nil state")
	}
	if s.readOnly {
		return fmt.Errorf("persist %s: %w", s.path, ErrReadOnly)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unreadable != nil {
		return fmt.Errorf("refusing to overwrite unreadable tracking state %s: %w", s.path, s.unreadable)
	}

	data, err := encodeState(state)
	if err != nil {
		return fmt.Errorf("encode tracking state: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create temporary state file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temporary state file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync temporary state file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temporary state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename state file into place: %w", err)
	}

	if parent, err := os.Open(filepath.Dir(s.path)); err == nil {
		parent.Sync()
		parent.Close()
	}

	s.logger.Debug("tracking state persisted", "path", s.path, "identifiers", state.Len())
	return nil
}

func (s *FileStore) quarantine() {
	target := s.path + ".corrupt"
	if err := os.Rename(s.path, target); err != nil {
		s.logger.Warn("cannot move corrupt tracking state aside", "path", s.path, "error", err)
		return
	}
	s.logger.Warn("corrupt tracking state moved aside", "path", target)
}

func decodeState(raw []byte) (*domain.TrackingState, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}

	state := domain.NewTrackingState()

	if seenRaw, ok := fields["seenByCategory"]; ok {
		var seen map[string][]string
		if err := json.Unmarshal(seenRaw, &seen); err != nil {
			return nil, fmt.Errorf("seenByCategory: %w", err)
		}
		for category, ids := range seen {
			for _, id := range ids {
				state.Restore(domain.Category(category), id)
			}
		}
	}

	for key, category := range legacyKeys {
		listRaw, ok := fields[key]
		if !ok {
			continue
		}
		var ids []string
		if err := json.Unmarshal(listRaw, &ids); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		for _, id := range ids {
			state.Restore(category, id)
		}
	}

	for _, key := range []string{"lastRun", "last_run"} {
		if ts, ok := parseTimestamp(fields[key]); ok {
			state.LastRun = &ts
			break
		}
	}

	return state, nil
}

// parseTimestamp accepts RFC 3339 and the offset-less ISO form older files used.
func parseTimestamp(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 {
		return time.Time{}, false
	}
	var value *string
	if err := json.Unmarshal(raw, &value); err != nil || value == nil {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, *value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func encodeState(state *domain.TrackingState) ([]byte, error) {
	out := stateFile{SeenByCategory: map[string][]string{}}
	for _, category := range state.Categories() {
		out.SeenByCategory[string(category)] = state.Identifiers(category)
	}
	if state.LastRun != nil {
		ts := state.LastRun.UTC().Format(time.RFC3339)
		out.LastRun = &ts
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
