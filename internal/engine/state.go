package engine

import (
	"sync"
	"time"
)

// Status is the lifecycle phase of one queue poller.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusPolling  Status = "polling"
	StatusStopping Status = "stopping"
)

// PollerState tracks the lifecycle and counters of one poller. All methods
// are safe for concurrent use; the polling loop writes while status queries
// read.
type PollerState struct {
	mu sync.RWMutex

	status     Status
	startedAt  time.Time
	lastPollAt time.Time

	polls         int64
	receiveErrors int64
	received      int64
	succeeded     int64
	failed        int64
	redrives      int64
	exhausted     int64

	lastError string
}

// StateSnapshot is a point-in-time copy of a poller's state.
type StateSnapshot struct {
	Queue      string    `json:"queue"`
	Handler    string    `json:"handler"`
	Status     Status    `json:"status"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	LastPollAt time.Time `json:"last_poll_at,omitempty"`

	Polls         int64 `json:"polls"`
	ReceiveErrors int64 `json:"receive_errors"`
	Received      int64 `json:"received"`
	Succeeded     int64 `json:"succeeded"`
	Failed        int64 `json:"failed"`
	Redrives      int64 `json:"redrives"`
	Exhausted     int64 `json:"exhausted"`

	LastError string `json:"last_error,omitempty"`
}

func newPollerState() *PollerState {
	return &PollerState{status: StatusStopped}
}

// Status returns the current lifecycle phase.
func (s *PollerState) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *PollerState) setStatus(status Status) {
	s.mu.Lock()
	s.status = status
	if status == StatusStarting {
		s.startedAt = time.Now()
	}
	s.mu.Unlock()
}

func (s *PollerState) recordPoll() {
	s.mu.Lock()
	s.polls++
	s.lastPollAt = time.Now()
	s.mu.Unlock()
}

func (s *PollerState) recordReceiveError(err error) {
	s.mu.Lock()
	s.receiveErrors++
	if err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()
}

func (s *PollerState) recordReceived(n int) {
	s.mu.Lock()
	s.received += int64(n)
	s.mu.Unlock()
}

func (s *PollerState) recordSuccess() {
	s.mu.Lock()
	s.succeeded++
	s.mu.Unlock()
}

func (s *PollerState) recordFailure(err error) {
	s.mu.Lock()
	s.failed++
	if err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()
}

func (s *PollerState) recordRedrive() {
	s.mu.Lock()
	s.redrives++
	s.mu.Unlock()
}

func (s *PollerState) recordExhausted() {
	s.mu.Lock()
	s.exhausted++
	s.mu.Unlock()
}

// Snapshot returns a consistent copy of the counters for the given identity.
func (s *PollerState) Snapshot(queue, handler string) StateSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StateSnapshot{
		Queue:         queue,
		Handler:       handler,
		Status:        s.status,
		StartedAt:     s.startedAt,
		LastPollAt:    s.lastPollAt,
		Polls:         s.polls,
		ReceiveErrors: s.receiveErrors,
		Received:      s.received,
		Succeeded:     s.succeeded,
		Failed:        s.failed,
		Redrives:      s.redrives,
		Exhausted:     s.exhausted,
		LastError:     s.lastError,
	}
}
