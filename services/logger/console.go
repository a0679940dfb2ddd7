package logsvc

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/trezcool/klabu/core"
)

// Entry is one recorded log line.
type Entry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// ConsoleLogger writes to a *log.Logger and can record its entries.
type ConsoleLogger struct {
	std           *log.Logger
	debug         bool
	disableOutput bool

	mu      sync.Mutex
	entries []Entry
	record  bool
}

var _ core.Logger = (*ConsoleLogger)(nil)

func NewConsoleLogger(std *log.Logger, debug bool) *ConsoleLogger {
	return &ConsoleLogger{std: std, debug: debug}
}

// NewConsoleLoggerMock records entries without printing them.
func NewConsoleLoggerMock() *ConsoleLogger {
	return &ConsoleLogger{
		std:           log.New(os.Stderr, "", 0),
		debug:         true,
		disableOutput: true,
		record:        true,
	}
}

// Entries returns the recorded entries at level, or all of them when level is empty.
func (l *ConsoleLogger) Entries(level string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

func (l *ConsoleLogger) log(level, msg string, args []interface{}) {
	if l.record {
		l.mu.Lock()
		l.entries = append(l.entries, Entry{Level: level, Msg: msg, Args: args})
		l.mu.Unlock()
	}
	if l.disableOutput || (level == "DEBUG" && !l.debug) {
		return
	}
	b := new(strings.Builder)
	b.WriteString(level)
	b.WriteString(" ")
	b.WriteString(msg)
	for _, arg := range args {
		if err, ok := arg.(error); ok {
			fmt.Fprintf(b, " | %v", err)
			continue
		}
		fmt.Fprintf(b, " | %+v", arg)
	}
	l.std.Println(b.String())
}

func (l *ConsoleLogger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *ConsoleLogger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *ConsoleLogger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *ConsoleLogger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }

func (l *ConsoleLogger) Fatal(msg string, args ...interface{}) {
	l.log("FATAL", msg, args)
	l.std.Fatal(msg)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
