package provisioning

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event is one structured provisioning event. Every significant transition
// (stage/phase start, completion, failure, storage decision) emits exactly one.
type Event struct {
	Type      EventType         // Type of event
	Unit      string            // Stage or "stage/phase" identifier
	Severity  Severity          // info, warn or error
	Host      string            // Node host identifier
	Message   string            // Human-readable message
	Timestamp time.Time         // When the event occurred
	Fields    map[string]string // Additional contextual fields
}

// EventType identifies the transition an event records.
type EventType string

const (
	// EventStageStarted indicates a stage has started.
	EventStageStarted EventType = "stage.started"
	// EventStageCompleted indicates a stage completed successfully.
	EventStageCompleted EventType = "stage.completed"
	// EventStageFailed indicates a stage failed.
	EventStageFailed EventType = "stage.failed"
	// EventStageSkipped indicates a stage was already complete.
	EventStageSkipped EventType = "stage.skipped"

	// EventPhaseStarted indicates a phase has started.
	EventPhaseStarted EventType = "phase.started"
	// EventPhaseCompleted indicates a phase completed successfully.
	EventPhaseCompleted EventType = "phase.completed"
	// EventPhaseFailed indicates a phase failed.
	EventPhaseFailed EventType = "phase.failed"
	// EventPhaseSkipped indicates a phase was already complete or satisfied.
	EventPhaseSkipped EventType = "phase.skipped"

	// EventStorageDecision indicates the storage selector resolved a backing source.
	EventStorageDecision EventType = "storage.decision"

	// EventRebootRequired indicates a stage completed and requires a reboot.
	EventRebootRequired EventType = "reboot.required"

	// EventRunCompleted indicates every stage is complete.
	EventRunCompleted EventType = "run.completed"
)

// Severity mirrors the levels the external log collector accepts.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Observer receives structured provisioning events.
type Observer interface {
	// Event emits a structured event.
	Event(event Event)

	// Warnf emits a free-form warning outside the transition contract.
	Warnf(format string, v ...any)
}

// LogObserver writes events through zerolog: a console stream for humans
// and an optional JSON line sink for collectors.
type LogObserver struct {
	log  zerolog.Logger
	host string
	file io.Closer
}

// NewLogObserver builds an observer writing to stderr and, when eventLogPath
// is non-empty, appending JSON events to that file.
func NewLogObserver(host, eventLogPath string) (*LogObserver, error) {
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	writers := []io.Writer{console}

	var file io.Closer
	if eventLogPath != "" {
		if err := os.MkdirAll(filepath.Dir(eventLogPath), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(eventLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		writers = append(writers, f)
		file = f
	}

	log := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	return &LogObserver{log: log, host: host, file: file}, nil
}

// Event implements Observer.
func (o *LogObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Host == "" {
		event.Host = o.host
	}

	ev := o.log.Info()
	switch event.Severity {
	case SeverityWarn:
		ev = o.log.Warn()
	case SeverityError:
		ev = o.log.Error()
	}
	ev = ev.Str("event", string(event.Type)).
		Str("unit", event.Unit).
		Str("host", event.Host)
	for k, v := range event.Fields {
		ev = ev.Str(k, v)
	}
	ev.Msg(event.Message)
}

// Warnf implements Observer.
func (o *LogObserver) Warnf(format string, v ...any) {
	o.log.Warn().Str("host", o.host).Msgf(format, v...)
}

// Close releases the JSON sink, if any.
func (o *LogObserver) Close() error {
	if o.file != nil {
		return o.file.Close()
	}
	return nil
}

// MockObserver records events for assertions in tests.
type MockObserver struct {
	mu     sync.Mutex
	Events []Event
}

// NewMockObserver returns an empty recording observer.
func NewMockObserver() *MockObserver { return &MockObserver{} }

// Event implements Observer.
func (m *MockObserver) Event(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
}

// Warnf implements Observer.
func (m *MockObserver) Warnf(format string, v ...any) {
	m.Event(Event{Type: "warn", Severity: SeverityWarn, Message: fmt.Sprintf(format, v...)})
}

// Has reports whether an event of the given type was emitted for unit.
// An empty unit matches any.
func (m *MockObserver) Has(t EventType, unit string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Events {
		if e.Type == t && (unit == "" || e.Unit == unit) {
			return true
		}
	}
	return false
}

// Count returns the number of events of the given type.
func (m *MockObserver) Count(t EventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Events {
		if e.Type == t {
			n++
		}
	}
	return n
}
