// SPDX-License-Identifier: AGPL-3.0-or-later
package telemetry

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"
)

// sessionFilePattern matches the session log filenames DiskJournal
// creates, so a fresh process run picks the next free session number
// for the day rather than reusing an earlier session's log from that day.
var sessionFilePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-sess(\d+)-serial\.txt$`)

// DiskJournal mirrors every TrafficLog entry to an append-only file on
// disk, one file per process run ("session"), so a collaborator can
// inspect raw wire traffic after the fact without the in-memory
// TrafficLog (which a long-running daemon may eventually want to trim).
type DiskJournal struct {
	mu   sync.Mutex
	file *os.File
}

// NewDiskJournal creates a new session file under dir, numbered one past
// the highest session number already there for today. A journal that fails
// to open its file logs the error and becomes a no-op rather than
// aborting the caller — traffic journaling is diagnostic, not load
// bearing.
func NewDiskJournal(dir string) *DiskJournal {
	j := &DiskJournal{}

	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("telemetry: failed to create journal directory", "dir", dir, "err", err)
		return j
	}

	name := nextSessionFileName(dir, time.Now())
	if name == "" {
		slog.Error("telemetry: failed to list journal directory", "dir", dir)
		return j
	}

	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		slog.Error("telemetry: failed to create journal file", "path", path, "err", err)
		return j
	}

	j.file = f
	slog.Info("telemetry: opened traffic journal", "path", path)
	return j
}

func nextSessionFileName(dir string, now time.Time) string {
	today := now.Format("2006-01-02")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	maxSession := -1
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := sessionFilePattern.FindStringSubmatch(entry.Name())
		if len(m) != 3 || m[1] != today {
			continue
		}
		if n, err := strconv.Atoi(m[2]); err == nil && n > maxSession {
			maxSession = n
		}
	}
	return fmt.Sprintf("%s-sess%d-serial.txt", today, maxSession+1)
}

// Append writes one traffic line to the journal file. A nil/failed-open
// journal silently drops writes.
func (j *DiskJournal) Append(line TrafficLine) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return
	}

	entry := fmt.Sprintf("%s %d %s %s\n",
		line.Time.Local().Format("2006-01-02 15:04:05.000-07:00"), line.Seq, line.Dir, line.Content)
	if _, err := j.file.WriteString(entry); err != nil {
		slog.Error("telemetry: journal write failed", "err", err)
		return
	}
	j.file.Sync()
}

// Close closes the underlying file, if open.
func (j *DiskJournal) Close() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return
	}
	j.file.Close()
	j.file = nil
}
