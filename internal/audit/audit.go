// Package audit appends one JSON line per mutating operation to an
// operations log under the data dir. The log is advisory: commands never
// fail because the audit write failed. Rotation keeps it bounded.
package audit

import (
	"encoding/json"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/untoldecay/backlog/internal/config"
)

// FileName is the operations log stored under the data dir.
const FileName = ".activity.log"

// Entry is one mutating operation as observed at the command boundary.
type Entry struct {
	Kind      string    `json:"kind"`
	Actor     string    `json:"actor,omitempty"`
	TaskID    string    `json:"task_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Append writes one entry through the rotating sink. Errors are swallowed;
// the task tree, not this log, is the source of truth.
func Append(dataDir string, e Entry) {
	if dataDir == "" || e.Kind == "" {
		return
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	} else {
		e.CreatedAt = e.CreatedAt.UTC()
	}
	sink := &lumberjack.Logger{
		Filename:   filepath.Join(dataDir, FileName),
		MaxSize:    maxMB(),
		MaxBackups: config.GetInt("activity-log-backups"),
		Compress:   false,
	}
	defer sink.Close()
	line, err := json.Marshal(e)
	if err != nil {
		return
	}
	_, _ = sink.Write(append(line, '\n'))
}

func maxMB() int {
	if n := config.GetInt("activity-log-max-mb"); n > 0 {
		return n
	}
	return 5
}
