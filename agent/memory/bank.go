package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/interviewforge/agent/contract"
	"github.com/tanpawarit/interviewforge/pkg/atomicfile"
)

var (
	ErrNilRun         = errors.New("run summary is empty")
	ErrEmptyPath      = errors.New("memory file path is empty")
	ErrDuplicateRun   = errors.New("run already recorded")
	ErrUnknownBackend = errors.New("unknown history backend")
)

var _ contractx.RunStore = (*FileBank)(nil)

// storeDocument is the on-disk layout of the memory file.
type storeDocument struct {
	Runs []contractx.RunSummary `json:"runs"`
}

// FileBank keeps the run history in a single JSON document that is rewritten
// in full on every save.
type FileBank struct {
	mu   sync.Mutex
	path string
	runs []contractx.RunSummary
	log  zerolog.Logger
}

// OpenFileBank loads the history at path. A missing or unparseable file yields
// an empty history; the corrupt file is overwritten by the next save.
func OpenFileBank(path string, logger zerolog.Logger) (*FileBank, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrEmptyPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create memory dir: %v", contractx.ErrPersistence, err)
	}

	b := &FileBank{
		path: path,
		runs: []contractx.RunSummary{},
		log:  logger.With().Str("component", "memory_bank").Str("path", path).Logger(),
	}

	runs, err := ReadFile(path)
	switch {
	case err == nil:
		b.runs = runs
	case errors.Is(err, os.ErrNotExist):
		b.log.Debug().Msg("no memory file yet, starting with empty history")
	case errors.Is(err, errCorruptDocument):
		b.log.Warn().Err(err).Msg("memory file is corrupt, starting with empty history")
	default:
		return nil, fmt.Errorf("%w: %v", contractx.ErrPersistence, err)
	}
	return b, nil
}

var errCorruptDocument = errors.New("memory document corrupt")

// ReadFile parses a memory file without opening a bank.
func ReadFile(path string) ([]contractx.RunSummary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc storeDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptDocument, err)
	}
	if doc.Runs == nil {
		doc.Runs = []contractx.RunSummary{}
	}
	return doc.Runs, nil
}

func (b *FileBank) Path() string {
	return b.path
}

// SaveRun appends run and rewrites the memory file. The in-memory history only
// changes once the new document is on disk.
func (b *FileBank) SaveRun(ctx context.Context, run contractx.RunSummary) error {
	if strings.TrimSpace(run.RunID) == "" {
		return ErrNilRun
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if containsRun(b.runs, run.RunID) {
		return fmt.Errorf("%w: run_id=%s", ErrDuplicateRun, run.RunID)
	}

	next := make([]contractx.RunSummary, len(b.runs), len(b.runs)+1)
	copy(next, b.runs)
	next = append(next, run.Clone())

	payload, err := json.MarshalIndent(storeDocument{Runs: next}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal memory document: %w", err)
	}
	if err := atomicfile.WriteFile(b.path, payload, 0o644); err != nil {
		return err
	}

	b.runs = next
	b.log.Info().Str("run_id", run.RunID).Int("runs", len(next)).Msg("run saved")
	return nil
}

// ListRuns returns the history in insertion order. It does no I/O.
func (b *FileBank) ListRuns() []contractx.RunSummary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return contractx.CloneRuns(b.runs)
}

func containsRun(runs []contractx.RunSummary, runID string) bool {
	for _, r := range runs {
		if r.RunID == runID {
			return true
		}
	}
	return false
}
