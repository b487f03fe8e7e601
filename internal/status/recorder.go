package status

import (
	"sync"

	"parley/internal/domain"
)

// Level classifies a recorded status event.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event is one recorded status report.
type Event struct {
	Level Level
	Msg   string
	Err   error
}

// Recorder keeps every status event and delivered message in memory. It is
// used by tests and by embedders that render status themselves.
type Recorder struct {
	mu       sync.Mutex
	events   []Event
	messages []domain.DeliveredMessage
	notify   chan struct{}
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{notify: make(chan struct{}, 1)}
}

func (r *Recorder) Info(msg string) { r.add(Event{Level: LevelInfo, Msg: msg}) }
func (r *Recorder) Warn(msg string) { r.add(Event{Level: LevelWarn, Msg: msg}) }

func (r *Recorder) Error(msg string, err error) {
	r.add(Event{Level: LevelError, Msg: msg, Err: err})
}

// Deliver records a decrypted message.
func (r *Recorder) Deliver(m domain.DeliveredMessage) {
	r.mu.Lock()
	m.Plaintext = append([]byte(nil), m.Plaintext...)
	r.messages = append(r.messages, m)
	r.mu.Unlock()
	r.poke()
}

// Events returns a copy of the recorded status events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Errors returns only the error events.
func (r *Recorder) Errors() []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Level == LevelError {
			out = append(out, e)
		}
	}
	return out
}

// Messages returns a copy of the delivered messages.
func (r *Recorder) Messages() []domain.DeliveredMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.DeliveredMessage(nil), r.messages...)
}

// Changed is signalled (coalesced) whenever something is recorded.
func (r *Recorder) Changed() <-chan struct{} { return r.notify }

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	r.poke()
}

func (r *Recorder) poke() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

var (
	_ domain.StatusSink  = (*Recorder)(nil)
	_ domain.MessageSink = (*Recorder)(nil)
)
