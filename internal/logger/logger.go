package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (lv Level) String() string {
	switch lv {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "INFO"
	}
}

var levelColors = map[Level]*color.Color{
	LevelDebug: color.New(color.FgCyan),
	LevelInfo:  color.New(color.FgGreen),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed),
	LevelFatal: color.New(color.FgRed, color.Bold),
}

var categoryColors = map[Level]*color.Color{
	LevelDebug: color.New(color.FgCyan, color.Bold),
	LevelInfo:  color.New(color.FgGreen, color.Bold),
	LevelWarn:  color.New(color.FgYellow, color.Bold),
	LevelError: color.New(color.FgRed, color.Bold),
	LevelFatal: color.New(color.FgRed, color.Bold),
}

type entry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	Caller    string `json:"caller,omitempty"`
}

// Logger writes a colored line to the terminal and a JSON line to a daily
// log file under logs/.
type Logger struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
}

func NewLogger() *Logger {
	l := &Logger{}

	if err := os.MkdirAll("logs", 0755); err == nil {
		name := fmt.Sprintf("logs/edu-crm-%s.log", time.Now().Format("2006-01-02"))
		if f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666); err == nil {
			l.file = f
			l.encoder = json.NewEncoder(f)
		}
	}

	if l.file == nil {
		// Terminal output still works without the file sink.
		l.Warn("LOGGER", "File logging unavailable, using terminal only")
	}
	return l
}

func (l *Logger) write(lv Level, category, message string) {
	var caller string
	if _, file, line, ok := runtime.Caller(2); ok {
		caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	e := entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     lv.String(),
		Category:  strings.ToUpper(category),
		Message:   message,
		Caller:    caller,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	lc, ok := levelColors[lv]
	if !ok {
		lc = levelColors[LevelInfo]
	}
	cc, ok := categoryColors[lv]
	if !ok {
		cc = categoryColors[LevelInfo]
	}
	line := fmt.Sprintf("%s %s %s %s",
		color.BlueString(time.Now().Format("15:04:05")),
		lc.Sprintf("%-5s", e.Level),
		cc.Sprintf("[%-10s]", e.Category),
		e.Message,
	)
	if caller != "" {
		line += color.MagentaString(" (%s)", caller)
	}
	fmt.Println(line)

	if l.encoder != nil {
		_ = l.encoder.Encode(e)
	}
}

func (l *Logger) Debug(category, message string) { l.write(LevelDebug, category, message) }
func (l *Logger) Info(category, message string)  { l.write(LevelInfo, category, message) }
func (l *Logger) Warn(category, message string)  { l.write(LevelWarn, category, message) }
func (l *Logger) Error(category, message string) { l.write(LevelError, category, message) }

func (l *Logger) Fatal(category, message string) {
	l.write(LevelFatal, category, message)
	os.Exit(1)
}

// LogEntity records a lifecycle action on a CRM entity, keyed by its code.
func (l *Logger) LogEntity(entity, action, code, message string) {
	l.Info(entity, fmt.Sprintf("[%s] %s - %s", action, code, message))
}

// LogAPI records a handled HTTP request.
func (l *Logger) LogAPI(method, path string, status int, duration time.Duration) {
	l.Info("API", fmt.Sprintf("%s %s - %d (%s)", method, path, status, duration))
}

// LogSecurity records authentication and authorization failures.
func (l *Logger) LogSecurity(event, message string) {
	l.Warn("SECURITY", fmt.Sprintf("[%s] %s", event, message))
}

func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
		l.encoder = nil
	}
}
