package app

import (
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2/data/binding"
)

const logDebounceInterval = 150 * time.Millisecond

// logCapture is an io.Writer that mirrors log output into a bound text widget.
// Updates are debounced so bursts of report lines redraw once.
type logCapture struct {
	mu      sync.Mutex
	lines   []string
	limit   int
	binding binding.String
	updates chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newLogCapture(b binding.String, limit int) *logCapture {
	l := &logCapture{
		binding: b,
		limit:   limit,
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go l.updateLoop()
	return l
}

// Close stops the update loop and publishes any pending lines.
func (l *logCapture) Close() error {
	l.once.Do(func() {
		close(l.done)
		<-l.stopped
		l.flush()
	})
	return nil
}

func (l *logCapture) Write(p []byte) (int, error) {
	text := strings.ReplaceAll(string(p), "\r\n", "\n")
	l.mu.Lock()
	for _, part := range strings.Split(text, "\n") {
		if part == "" {
			continue
		}
		l.lines = append(l.lines, part)
	}
	if len(l.lines) > l.limit {
		l.lines = l.lines[len(l.lines)-l.limit:]
	}
	l.mu.Unlock()
	select {
	case l.updates <- struct{}{}:
	default:
	}
	return len(p), nil
}

func (l *logCapture) updateLoop() {
	defer close(l.stopped)
	timer := time.NewTimer(logDebounceInterval)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-l.updates:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(logDebounceInterval)
		case <-timer.C:
			l.flush()
		}
	}
}

func (l *logCapture) flush() {
	l.mu.Lock()
	text := strings.Join(l.lines, "\n")
	l.mu.Unlock()
	_ = l.binding.Set(text)
}
