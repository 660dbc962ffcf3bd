package poller

import (
	"log"
	"sync"
	"time"
)

// ErrorLogger rate-limits repeated error logging so a PLC stuck down doesn't
// flood stderr once per cycle. Adapted from folke99-gofins/main.go's
// ErrorLogger: suppressed occurrences between two logged ones are rolled
// into the next log line's count.
type ErrorLogger struct {
	mu            sync.Mutex
	logger        *log.Logger
	lastLogged    time.Time
	suppressed    int
	minimumPeriod time.Duration
}

func NewErrorLogger(logger *log.Logger, minimumPeriod time.Duration) *ErrorLogger {
	return &ErrorLogger{logger: logger, minimumPeriod: minimumPeriod}
}

// LogError logs msg immediately the first time, then at most once per
// minimumPeriod thereafter, folding in how many occurrences were suppressed
// in between.
func (l *ErrorLogger) LogError(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if l.lastLogged.IsZero() || now.Sub(l.lastLogged) >= l.minimumPeriod {
		if l.suppressed > 0 {
			l.logger.Printf("%s (%d similar errors suppressed)", msg, l.suppressed)
		} else {
			l.logger.Printf("%s", msg)
		}
		l.lastLogged = now
		l.suppressed = 0
		return
	}
	l.suppressed++
}
