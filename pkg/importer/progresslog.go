package importer

import (
	"sync"
	"time"

	"github.com/Zobiii/Ets2RoutePlanner/pkg/models"
)

// ProgressLog is the append-only progress feed of an import run. Readers
// poll it with a cursor; lines are never re-delivered or reordered for a
// given cursor, and an out-of-range cursor clamps to the log's bounds
// instead of failing.
type ProgressLog struct {
	mu    sync.Mutex
	lines []models.LogLine
}

// NewProgressLog creates an empty progress log.
func NewProgressLog() *ProgressLog {
	return &ProgressLog{}
}

// Append adds one line to the log.
func (l *ProgressLog) Append(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lines = append(l.lines, models.LogLine{
		Seq:  len(l.lines),
		At:   time.Now().UTC(),
		Text: text,
	})
}

// Since returns the lines appended at or after the cursor plus the cursor to
// poll with next. Cursors below zero read from the start; cursors past the
// end read nothing.
func (l *ProgressLog) Since(cursor int) ([]models.LogLine, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(l.lines) {
		cursor = len(l.lines)
	}

	chunk := make([]models.LogLine, len(l.lines)-cursor)
	copy(chunk, l.lines[cursor:])
	return chunk, len(l.lines)
}

// Reset discards all lines. Called when a new run starts; stale cursors from
// the previous run clamp back into range on their next read.
func (l *ProgressLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = nil
}
