// Package availability advises whether a candidate hour collides with
// existing bookings. The check is advisory and never locks a slot.
package availability

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/javiermolinar/clinicflow/internal/appointment"
	"github.com/javiermolinar/clinicflow/internal/metrics"
)

// Status is the outcome of the latest availability check.
type Status int

const (
	StatusIdle Status = iota
	StatusChecking
	StatusAvailable
	StatusTaken
	StatusUnknown // the check failed; booking is allowed
)

func (s Status) String() string {
	switch s {
	case StatusChecking:
		return "checking"
	case StatusAvailable:
		return "available"
	case StatusTaken:
		return "taken"
	case StatusUnknown:
		return "unknown"
	default:
		return "idle"
	}
}

// Conflict returns the first busy slot starting less than one hour away
// from hour. This is a coarse window, not an interval overlap test.
func Conflict(busy []appointment.BusySlot, hour float64) (appointment.BusySlot, bool) {
	for _, b := range busy {
		h := b.Hour()
		if h < 0 {
			continue
		}
		if math.Abs(h-hour) < 1 {
			return b, true
		}
	}
	return appointment.BusySlot{}, false
}

// Query is what the user currently has selected.
type Query struct {
	Date        time.Time
	Hour        float64
	CounselorID string
}

// Ready reports whether the query has enough to be checked.
func (q Query) Ready() bool {
	return !q.Date.IsZero() && q.Hour >= 0
}

// Request is a tokened check to run off the event loop.
type Request struct {
	Token uint64
	Query Query
}

// Response is the result of running a Request.
type Response struct {
	Token uint64
	Busy  []appointment.BusySlot
	Err   error
}

// Run executes req against checker.
func Run(ctx context.Context, checker appointment.AvailabilityChecker, req Request) Response {
	busy, err := checker.CheckAvailability(ctx, req.Query.Date, req.Query.CounselorID)
	if err != nil {
		return Response{Token: req.Token, Err: fmt.Errorf("checking availability: %w", err)}
	}
	return Response{Token: req.Token, Busy: busy}
}

// Tracker holds the state of the most recent check. Only the response to the
// latest request is applied; earlier ones are dropped.
type Tracker struct {
	token    uint64
	query    Query
	status   Status
	occupant appointment.BusySlot
	err      error
	metrics  *metrics.Metrics
}

// NewTracker returns an idle tracker. m may be nil.
func NewTracker(m *metrics.Metrics) *Tracker {
	return &Tracker{metrics: m}
}

// Begin records a new query and returns the request to run. Any response to
// an earlier request becomes stale.
func (t *Tracker) Begin(q Query) Request {
	t.token++
	t.query = q
	t.err = nil
	t.occupant = appointment.BusySlot{}
	if q.Ready() {
		t.status = StatusChecking
	} else {
		t.status = StatusIdle
	}
	return Request{Token: t.token, Query: q}
}

// Resolve applies resp if it answers the latest request. It returns false
// when the response was stale and ignored.
func (t *Tracker) Resolve(resp Response) bool {
	if resp.Token != t.token || t.status != StatusChecking {
		t.metrics.ObserveStale("availability")
		return false
	}
	if resp.Err != nil {
		t.status = StatusUnknown
		t.err = resp.Err
		t.metrics.ObserveAvailability(t.status.String())
		return true
	}
	if slot, taken := Conflict(resp.Busy, t.query.Hour); taken {
		t.status = StatusTaken
		t.occupant = slot
	} else {
		t.status = StatusAvailable
	}
	t.metrics.ObserveAvailability(t.status.String())
	return true
}

// Reset forgets the current query and invalidates in-flight requests.
func (t *Tracker) Reset() {
	t.token++
	t.query = Query{}
	t.status = StatusIdle
	t.occupant = appointment.BusySlot{}
	t.err = nil
}

// Status returns the current status.
func (t *Tracker) Status() Status { return t.status }

// Query returns the query of the latest request.
func (t *Tracker) Query() Query { return t.query }

// Occupant returns the conflicting slot when the status is StatusTaken.
func (t *Tracker) Occupant() appointment.BusySlot { return t.occupant }

// Err returns the failure behind StatusUnknown.
func (t *Tracker) Err() error { return t.err }

// Blocking reports whether confirmation must be held back.
func (t *Tracker) Blocking() bool {
	return t.status == StatusChecking || t.status == StatusTaken
}

// Message describes the status for display.
func (t *Tracker) Message() string {
	switch t.status {
	case StatusChecking:
		return "Checking availability..."
	case StatusAvailable:
		return "This time is available."
	case StatusTaken:
		name := t.occupant.OccupantName
		if name == "" {
			name = "another client"
		}
		return fmt.Sprintf("%s is already booked at %s. Pick another time.", name, t.occupant.Time)
	case StatusUnknown:
		return "Could not check availability. You can still book."
	default:
		return ""
	}
}

// Heatmap counts busy slots per whole hour in [firstHour, lastHour). The
// result is indexed from firstHour.
func Heatmap(busy []appointment.BusySlot, firstHour, lastHour int) []int {
	if lastHour <= firstHour {
		return nil
	}
	counts := make([]int, lastHour-firstHour)
	for _, b := range busy {
		h := b.Hour()
		if h < 0 {
			continue
		}
		idx := int(math.Floor(h)) - firstHour
		if idx >= 0 && idx < len(counts) {
			counts[idx]++
		}
	}
	return counts
}

// BusyFromAppointments converts appointments on day into busy slots,
// skipping canceled ones. It mirrors what the remote check reports.
func BusyFromAppointments(appts []*appointment.Appointment, day time.Time, counselorID string) []appointment.BusySlot {
	var busy []appointment.BusySlot
	y, m, d := day.Date()
	for _, a := range appts {
		ay, am, ad := a.Start.Date()
		if ay != y || am != m || ad != d || !a.IsActive() {
			continue
		}
		if counselorID != "" && a.CounselorID != counselorID {
			continue
		}
		busy = append(busy, appointment.BusySlot{Time: a.TimeString(), OccupantName: a.ClientName})
	}
	return busy
}
