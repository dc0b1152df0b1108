package tool

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/opencode-ai/companion/internal/event"
	"github.com/opencode-ai/companion/internal/logging"
)

const scheduleRepromptDescription = `Schedule a reminder that makes you speak to the user again later.
Use this when the user asks to be reminded of something or to check back after some time.`

// MaxReminderDelay is the longest delay a reminder may be scheduled for.
const MaxReminderDelay = 24 * time.Hour

// Reprompter produces the companion's reply when a reminder fires.
type Reprompter func(ctx context.Context, sessionID, message string) (string, error)

// Reminder is a pending scheduled re-prompt.
type Reminder struct {
	ID        string
	SessionID string
	Message   string
	DueAt     time.Time
}

// Scheduler owns pending reminders and implements the schedule_reprompt tool.
type Scheduler struct {
	mu         sync.Mutex
	timers     map[string]*time.Timer
	pending    map[string]Reminder
	bus        *event.Bus
	reprompter Reprompter
	timeout    time.Duration
	closed     bool
	now        func() time.Time
}

// NewScheduler creates a scheduler publishing on bus. bus may be nil.
func NewScheduler(bus *event.Bus) *Scheduler {
	return &Scheduler{
		timers:  make(map[string]*time.Timer),
		pending: make(map[string]Reminder),
		bus:     bus,
		timeout: time.Minute,
		now:     time.Now,
	}
}

// SetReprompter sets the function called when a reminder fires. It is set
// after construction because the orchestrator depends on the tool registry.
func (s *Scheduler) SetReprompter(fn Reprompter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reprompter = fn
}

func (s *Scheduler) ID() string          { return "schedule_reprompt" }
func (s *Scheduler) Description() string { return scheduleRepromptDescription }
func (s *Scheduler) InputDescription() string {
	return `When and what, e.g. "in 10 minutes: drink some water"`
}

// Run parses input and schedules a reminder for the calling session.
func (s *Scheduler) Run(ctx context.Context, input string) (string, error) {
	delay, msg, err := ParseReminder(input)
	if err != nil {
		return err.Error(), nil
	}

	r, err := s.Schedule(SessionIDFromContext(ctx), delay, msg)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Reminder set for %s: %s", r.DueAt.Format("3:04 PM"), r.Message), nil
}

// Schedule registers a reminder firing after delay.
func (s *Scheduler) Schedule(sessionID string, delay time.Duration, message string) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Reminder{}, fmt.Errorf("scheduler closed")
	}

	r := Reminder{
		ID:        ulid.Make().String(),
		SessionID: sessionID,
		Message:   message,
		DueAt:     s.now().Add(delay),
	}
	s.pending[r.ID] = r
	s.timers[r.ID] = time.AfterFunc(delay, func() { s.fire(r.ID) })

	log := logging.Component("reminder")
	log.Info().
		Str("id", r.ID).
		Str("sessionID", sessionID).
		Dur("delay", delay).
		Msg("reminder scheduled")

	if s.bus != nil {
		s.bus.Publish(event.Event{
			Type: event.ReminderScheduled,
			Data: event.ReminderScheduledData{
				ID:        r.ID,
				SessionID: r.SessionID,
				Message:   r.Message,
				DueAt:     r.DueAt,
			},
		})
	}
	return r, nil
}

// Pending returns the reminders that have not fired yet.
func (s *Scheduler) Pending() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Reminder, 0, len(s.pending))
	for _, r := range s.pending {
		out = append(out, r)
	}
	return out
}

// Cancel stops a pending reminder. It reports whether one was removed.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[id]
	if !ok {
		return false
	}
	t.Stop()
	delete(s.timers, id)
	delete(s.pending, id)
	return true
}

// Close stops all pending timers.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
		delete(s.pending, id)
	}
}

func (s *Scheduler) fire(id string) {
	s.mu.Lock()
	r, ok := s.pending[id]
	delete(s.pending, id)
	delete(s.timers, id)
	reprompt := s.reprompter
	closed := s.closed
	s.mu.Unlock()
	if !ok || closed {
		return
	}

	log := logging.Component("reminder")
	var response string
	if reprompt != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		var err error
		response, err = reprompt(ctx, r.SessionID, "Reminder: "+r.Message)
		if err != nil {
			log.Warn().Err(err).Str("id", id).Msg("reminder reprompt failed")
		}
	}
	log.Info().Str("id", id).Str("sessionID", r.SessionID).Msg("reminder due")

	if s.bus != nil {
		s.bus.Publish(event.Event{
			Type: event.ReminderDue,
			Data: event.ReminderDueData{
				ID:        r.ID,
				SessionID: r.SessionID,
				Message:   r.Message,
				Response:  response,
			},
		})
	}
}

var (
	reminderPattern = regexp.MustCompile(`(?is)^\s*(?:in\s+)?(.+?)\s*[:,-]\s*(.+?)\s*$`)
	durationPart    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(seconds?|secs?|s|minutes?|mins?|m|hours?|hrs?|h)\b`)
)

// ParseReminder splits "in 10 minutes: drink water" into a delay and message.
// The delay may also be a Go duration such as "1h30m".
func ParseReminder(input string) (time.Duration, string, error) {
	m := reminderPattern.FindStringSubmatch(input)
	if m == nil {
		return 0, "", fmt.Errorf(`I need a time and a message, like "in 10 minutes: drink water".`)
	}

	delay, err := parseDelay(m[1])
	if err != nil {
		return 0, "", err
	}
	if delay <= 0 {
		return 0, "", fmt.Errorf("The reminder time must be in the future.")
	}
	if delay > MaxReminderDelay {
		return 0, "", fmt.Errorf("I can only set reminders up to 24 hours ahead.")
	}
	return delay, m[2], nil
}

func parseDelay(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	parts := durationPart.FindAllStringSubmatch(s, -1)
	if len(parts) == 0 {
		return 0, fmt.Errorf("I couldn't understand the time %q.", s)
	}

	var total time.Duration
	for _, p := range parts {
		n, err := strconv.ParseFloat(p[1], 64)
		if err != nil {
			return 0, fmt.Errorf("I couldn't understand the time %q.", s)
		}
		unit := time.Second
		switch strings.ToLower(p[2])[0] {
		case 'm':
			unit = time.Minute
		case 'h':
			unit = time.Hour
		}
		total += time.Duration(n * float64(unit))
	}
	return total, nil
}
