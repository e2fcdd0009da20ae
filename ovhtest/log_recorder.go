package ovhtest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cmstar/go-logx"
)

// Entry is one recorded log line.
type Entry struct {
	Level   logx.Level
	Message string
	Fields  map[string]string
}

// LogRecorder implements logx.Logger and keeps every line in memory.
// Each line is also rendered as "level=L message=M k=v ...".
type LogRecorder struct {
	mu      sync.Mutex
	buf     strings.Builder
	entries []Entry
}

var _ logx.Logger = (*LogRecorder)(nil)

// NewLogRecorder returns an empty recorder.
func NewLogRecorder() *LogRecorder {
	return &LogRecorder{}
}

// Log implements logx.Logger.
func (l *LogRecorder) Log(level logx.Level, message string, keyValues ...interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{Level: level, Message: message, Fields: make(map[string]string)}

	l.buf.WriteString("level=")
	l.buf.WriteString(logx.LevelToString(level))
	l.buf.WriteString(" message=")
	l.buf.WriteString(message)

	length := len(keyValues)
	for i := 0; i < length-1; i += 2 {
		k := fmt.Sprintf("%v", keyValues[i])
		v := fmt.Sprintf("%v", keyValues[i+1])

		fmt.Fprintf(&l.buf, " %s=%s", k, v)
		entry.Fields[k] = v
	}

	if length%2 != 0 {
		v := fmt.Sprintf("%v", keyValues[length-1])
		l.buf.WriteString(" UNKNOWN=")
		l.buf.WriteString(v)
		entry.Fields["UNKNOWN"] = v
	}

	l.buf.WriteByte('\n')
	l.entries = append(l.entries, entry)

	return nil
}

// LogFn implements logx.Logger.
func (l *LogRecorder) LogFn(level logx.Level, messageFactory func() (string, []interface{})) error {
	m, kv := messageFactory()
	return l.Log(level, m, kv...)
}

// String returns every recorded line.
func (l *LogRecorder) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.buf.String()
}

// Entries returns a copy of the recorded lines.
func (l *LogRecorder) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]Entry(nil), l.entries...)
}

// Count returns the number of lines recorded at level.
func (l *LogRecorder) Count(level logx.Level) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, e := range l.entries {
		if e.Level == level {
			n++
		}
	}

	return n
}
