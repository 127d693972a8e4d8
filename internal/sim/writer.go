package sim

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/edgy2009/adboard/internal/models"
)

// DefaultMaxEntries caps how many records a feed file retains. The board
// only reads the latest record, so the cap exists to keep long simulator
// runs from growing the files without bound.
const DefaultMaxEntries = 100

// FeedWriter appends records to the environmental and audience feed files.
// Each file is a JSON array with the newest record last, matching what the
// sensor processes write. Writes replace the file through a temp file and
// rename so the board never reads a torn array.
type FeedWriter struct {
	envPath      string
	audiencePath string
	maxEntries   int

	mu sync.Mutex
}

// NewFeedWriter creates a writer for the two feed files. A maxEntries of
// zero means DefaultMaxEntries.
func NewFeedWriter(envPath, audiencePath string, maxEntries int) *FeedWriter {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &FeedWriter{
		envPath:      envPath,
		audiencePath: audiencePath,
		maxEntries:   maxEntries,
	}
}

// AppendEnvironment appends one environmental record.
func (w *FeedWriter) AppendEnvironment(reading models.EnvironmentReading) error {
	return w.append(w.envPath, reading)
}

// AppendAudience appends one audience record.
func (w *FeedWriter) AppendAudience(reading models.AudienceReading) error {
	return w.append(w.audiencePath, reading)
}

func (w *FeedWriter) append(path string, record interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	entries, err := w.load(path)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal feed record: %w", err)
	}
	entries = append(entries, raw)
	if len(entries) > w.maxEntries {
		entries = entries[len(entries)-w.maxEntries:]
	}
	return w.write(path, entries)
}

// load reads the current feed array. A missing file is an empty feed; a
// corrupt one is dropped so the simulator recovers by starting a fresh
// array.
func (w *FeedWriter) load(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read feed %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, nil
	}
	return entries, nil
}

func (w *FeedWriter) write(path string, entries []json.RawMessage) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal feed: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create feed dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".feed-*.json")
	if err != nil {
		return fmt.Errorf("create temp feed file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp feed file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp feed file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace feed file: %w", err)
	}
	return nil
}
