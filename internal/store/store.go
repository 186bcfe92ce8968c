// Package store holds the appointments the calendar renders. Writes are
// applied locally first and reconciled with the repository afterwards.
//
// A Store is owned by a single event loop and is not safe for concurrent use.
// Remote calls (List, Execute) are plain functions so they can run off the
// loop; their results are folded back in with ApplyList and Settle.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/javiermolinar/clinicflow/internal/appointment"
	"github.com/javiermolinar/clinicflow/internal/metrics"
)

// Store errors.
var (
	ErrUnknownAppointment = errors.New("appointment is not loaded")
	ErrUnknownMutation    = errors.New("mutation is not pending")
	ErrCreatePending      = errors.New("appointment is still being created")
)

// pendingPrefix marks the placeholder id of an appointment still being created.
const pendingPrefix = "pending-"

// Op identifies a mutation kind.
type Op int

const (
	OpCreate Op = iota
	OpUpdateTime
	OpUpdateStatus
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpUpdateTime:
		return "update_time"
	case OpUpdateStatus:
		return "update_status"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Mutation is an optimistic write. Previous is what the appointment looked
// like before it (nil for a create), Pending what it looks like now (nil for
// a delete).
type Mutation struct {
	Seq      uint64
	Op       Op
	ID       string
	Previous *appointment.Appointment
	Pending  *appointment.Appointment

	Create appointment.CreateRequest
	Update appointment.TimeUpdate
	Status appointment.Status
}

// MutationResult is the repository's answer to a Mutation.
type MutationResult struct {
	Seq   uint64
	Value *appointment.Appointment
	Err   error
}

// ListRequest asks for the appointments in [Start, End].
type ListRequest struct {
	Token uint64
	Start time.Time
	End   time.Time
}

// ListResult answers a ListRequest.
type ListResult struct {
	Token uint64
	Start time.Time
	End   time.Time
	Items []*appointment.Appointment
	Err   error
}

// settlement is a confirmed value a list issued earlier may not reflect yet.
// A nil value means the appointment was deleted.
type settlement struct {
	gen   uint64
	value *appointment.Appointment
}

// Store is the in-memory appointment list.
type Store struct {
	items []*appointment.Appointment

	start   time.Time
	end     time.Time
	token   uint64
	loading bool
	listErr error

	seq      uint64
	pending  map[uint64]*Mutation
	latest   map[string]uint64                   // id -> newest pending seq
	previews map[string]*appointment.Appointment // id -> value before the gesture

	gen       uint64                // bumped on every confirmed mutation
	listSince uint64                // gen when the latest list was issued
	settled   map[string]settlement // id -> newest confirmed value

	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New returns an empty store. m and logger may be nil.
func New(m *metrics.Metrics, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		pending:  make(map[uint64]*Mutation),
		latest:   make(map[string]uint64),
		previews: make(map[string]*appointment.Appointment),
		settled:  make(map[string]settlement),
		metrics:  m,
		logger:   logger,
	}
}

// Appointments returns the loaded appointments ordered by start.
func (s *Store) Appointments() []*appointment.Appointment {
	out := make([]*appointment.Appointment, len(s.items))
	copy(out, s.items)
	return out
}

// Between returns the appointments starting within [from, to).
func (s *Store) Between(from, to time.Time) []*appointment.Appointment {
	var out []*appointment.Appointment
	for _, a := range s.items {
		if !a.Start.Before(from) && a.Start.Before(to) {
			out = append(out, a)
		}
	}
	return out
}

// Get returns the appointment with id.
func (s *Store) Get(id string) (*appointment.Appointment, bool) {
	i := s.index(id)
	if i < 0 {
		return nil, false
	}
	return s.items[i], true
}

// Window returns the range of the last applied list.
func (s *Store) Window() (start, end time.Time) {
	return s.start, s.end
}

// Loading reports whether the latest list request is still outstanding.
func (s *Store) Loading() bool { return s.loading }

// ListErr returns the failure of the latest list, if any.
func (s *Store) ListErr() error { return s.listErr }

// Pending reports whether any mutation is awaiting the repository.
func (s *Store) Pending() bool { return len(s.pending) > 0 }

// IsPending reports whether id has an unsettled mutation.
func (s *Store) IsPending(id string) bool {
	_, ok := s.latest[id]
	return ok
}

// BeginList issues a list request. Any earlier request becomes stale.
func (s *Store) BeginList(start, end time.Time) ListRequest {
	s.token++
	s.loading = true
	s.listSince = s.gen
	return ListRequest{Token: s.token, Start: start, End: end}
}

// List fetches the appointments for req.
func List(ctx context.Context, repo appointment.Repository, req ListRequest) ListResult {
	items, err := repo.ListAppointments(ctx, req.Start, req.End)
	if err != nil {
		err = fmt.Errorf("listing appointments: %w", err)
	}
	return ListResult{Token: req.Token, Start: req.Start, End: req.End, Items: items, Err: err}
}

// ApplyList replaces the loaded appointments with res if res answers the
// latest request. Pending mutations are replayed on top. It returns false
// for stale results.
func (s *Store) ApplyList(res ListResult) bool {
	if res.Token != s.token {
		s.metrics.ObserveStale("list")
		s.logger.Debug("dropping stale list response",
			zap.Uint64("token", res.Token),
			zap.Uint64("latest", s.token),
		)
		return false
	}
	s.loading = false
	if res.Err != nil {
		s.listErr = res.Err
		return true
	}
	s.listErr = nil
	s.start, s.end = res.Start, res.End
	s.items = make([]*appointment.Appointment, 0, len(res.Items))
	for _, a := range res.Items {
		s.items = append(s.items, a.Clone())
	}
	clear(s.previews)
	s.replaySettled()
	for _, seq := range s.pendingSeqs() {
		s.apply(s.pending[seq])
	}
	s.sort()
	return true
}

// replaySettled re-applies values confirmed after the applied list was
// issued, and forgets the ones it already reflects.
func (s *Store) replaySettled() {
	ids := make([]string, 0, len(s.settled))
	for id, st := range s.settled {
		if st.gen <= s.listSince {
			delete(s.settled, id)
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return s.settled[ids[i]].gen < s.settled[ids[j]].gen })
	for _, id := range ids {
		if v := s.settled[id].value; v != nil {
			s.put(v.Clone())
		} else {
			s.remove(id)
		}
	}
}

// Preview moves id locally while a gesture is in progress. The value before
// the first preview is kept so the gesture can be discarded or committed.
func (s *Store) Preview(id string, start time.Time, duration int) error {
	i := s.index(id)
	if i < 0 {
		return ErrUnknownAppointment
	}
	if _, ok := s.previews[id]; !ok {
		s.previews[id] = s.items[i].Clone()
	}
	moved := s.items[i].Clone()
	moved.Start = start
	moved.Duration = duration
	s.items[i] = moved
	s.sort()
	return nil
}

// DiscardPreviews restores every appointment moved by Preview.
func (s *Store) DiscardPreviews() {
	for id, prev := range s.previews {
		if i := s.index(id); i >= 0 {
			s.items[i] = prev
		}
		delete(s.previews, id)
	}
	s.sort()
}

// BeginCreate adds a placeholder for req and returns the mutation to execute.
func (s *Store) BeginCreate(req appointment.CreateRequest, clientName string) (Mutation, error) {
	if err := req.Validate(); err != nil {
		return Mutation{}, err
	}
	start, err := req.Start()
	if err != nil {
		return Mutation{}, err
	}
	recurring := req.Recurring
	if recurring == "" {
		recurring = appointment.RecurrenceNone
	}

	seq := s.nextSeq()
	placeholder := &appointment.Appointment{
		ID:          fmt.Sprintf("%s%d", pendingPrefix, seq),
		ClientID:    req.ClientID,
		ClientName:  clientName,
		CounselorID: req.CounselorID,
		Start:       start,
		Duration:    req.Duration,
		Kind:        req.Kind,
		Location:    req.Location,
		Status:      appointment.StatusScheduled,
		Recurring:   recurring,
		Notes:       req.Notes,
	}
	return s.begin(Mutation{
		Seq:     seq,
		Op:      OpCreate,
		ID:      placeholder.ID,
		Pending: placeholder,
		Create:  req,
	}), nil
}

// BeginUpdateTime moves or resizes id to start with duration minutes.
func (s *Store) BeginUpdateTime(id string, start time.Time, duration int) (Mutation, error) {
	return s.BeginReschedule(appointment.TimeUpdate{ID: id, Start: start, Duration: duration})
}

// BeginReschedule applies upd, including an optional location or counselor
// change.
func (s *Store) BeginReschedule(upd appointment.TimeUpdate) (Mutation, error) {
	if err := upd.Validate(); err != nil {
		return Mutation{}, err
	}
	prev, err := s.previous(upd.ID)
	if err != nil {
		return Mutation{}, err
	}
	next := prev.Clone()
	next.Start = upd.Start
	next.Duration = upd.Duration
	if upd.Location != nil {
		next.Location = *upd.Location
	}
	if upd.CounselorID != nil && *upd.CounselorID != next.CounselorID {
		next.CounselorID = *upd.CounselorID
		next.CounselorName = ""
	}
	return s.begin(Mutation{
		Seq:      s.nextSeq(),
		Op:       OpUpdateTime,
		ID:       upd.ID,
		Previous: prev,
		Pending:  next,
		Update:   upd,
	}), nil
}

// BeginUpdateStatus changes the status of id.
func (s *Store) BeginUpdateStatus(id string, status appointment.Status) (Mutation, error) {
	prev, err := s.previous(id)
	if err != nil {
		return Mutation{}, err
	}
	if err := prev.CanTransition(status); err != nil {
		return Mutation{}, err
	}
	next := prev.Clone()
	next.Status = status
	return s.begin(Mutation{
		Seq:      s.nextSeq(),
		Op:       OpUpdateStatus,
		ID:       id,
		Previous: prev,
		Pending:  next,
		Status:   status,
	}), nil
}

// BeginDelete removes id.
func (s *Store) BeginDelete(id string) (Mutation, error) {
	prev, err := s.previous(id)
	if err != nil {
		return Mutation{}, err
	}
	return s.begin(Mutation{
		Seq:      s.nextSeq(),
		Op:       OpDelete,
		ID:       id,
		Previous: prev,
	}), nil
}

// Execute performs m against repo.
func Execute(ctx context.Context, repo appointment.Repository, m Mutation) MutationResult {
	res := MutationResult{Seq: m.Seq}
	switch m.Op {
	case OpCreate:
		res.Value, res.Err = repo.CreateAppointment(ctx, m.Create)
	case OpUpdateTime:
		res.Value, res.Err = repo.UpdateAppointmentTime(ctx, m.Update)
	case OpUpdateStatus:
		res.Err = repo.UpdateAppointmentStatus(ctx, m.ID, m.Status)
	case OpDelete:
		res.Err = repo.DeleteAppointment(ctx, m.ID)
	default:
		res.Err = fmt.Errorf("unknown mutation %d", m.Op)
	}
	if res.Err != nil {
		res.Err = fmt.Errorf("%s appointment: %w", m.Op, res.Err)
	}
	return res
}

// Settle folds res into the store. On success the server value replaces the
// optimistic one; on failure the previous value is restored. The repository
// error is returned unchanged so the caller can report it.
func (s *Store) Settle(res MutationResult) error {
	m, ok := s.pending[res.Seq]
	if !ok {
		return ErrUnknownMutation
	}
	delete(s.pending, res.Seq)
	newest := s.latest[m.ID] == m.Seq
	if newest {
		delete(s.latest, m.ID)
	}
	s.metrics.ObserveMutation(m.Op.String(), res.Err == nil)

	if res.Err != nil {
		s.logger.Warn("rolling back appointment change",
			zap.String("op", m.Op.String()),
			zap.String("id", m.ID),
			zap.Error(res.Err),
		)
		if newest {
			s.restore(m.ID, m.Previous)
		} else {
			s.rebase(m.ID, m.Seq, m.Previous)
		}
		s.sort()
		return res.Err
	}

	value := m.Pending
	if res.Value != nil {
		value = res.Value.Clone()
	}
	s.remember(m, value)
	switch {
	case newest && m.Op != OpDelete:
		s.restore(m.ID, value)
	case !newest:
		s.rebase(m.ID, m.Seq, value)
	}
	s.sort()
	return nil
}

// Sync runs m to completion. It is meant for callers without an event loop.
func (s *Store) Sync(ctx context.Context, repo appointment.Repository, m Mutation) (*appointment.Appointment, error) {
	res := Execute(ctx, repo, m)
	if err := s.Settle(res); err != nil {
		return nil, err
	}
	if res.Value != nil {
		return res.Value, nil
	}
	a, _ := s.Get(m.ID)
	return a, nil
}

// remember records a confirmed value so a list already in flight cannot
// bring back what it replaced.
func (s *Store) remember(m *Mutation, value *appointment.Appointment) {
	s.gen++
	if m.Op == OpDelete || value == nil {
		s.settled[m.ID] = settlement{gen: s.gen}
		return
	}
	s.settled[value.ID] = settlement{gen: s.gen, value: value.Clone()}
}

func (s *Store) begin(m Mutation) Mutation {
	stored := m
	s.pending[m.Seq] = &stored
	s.latest[m.ID] = m.Seq
	s.apply(&stored)
	s.sort()
	return m
}

func (s *Store) apply(m *Mutation) {
	if m.Pending == nil {
		s.remove(m.ID)
		return
	}
	s.put(m.Pending.Clone())
}

// previous returns the value to roll back to for id. A gesture preview is
// consumed here so the mutation reverts to where the drag started.
func (s *Store) previous(id string) (*appointment.Appointment, error) {
	if strings.HasPrefix(id, pendingPrefix) {
		return nil, ErrCreatePending
	}
	if p, ok := s.previews[id]; ok {
		delete(s.previews, id)
		return p.Clone(), nil
	}
	a, ok := s.Get(id)
	if !ok {
		return nil, ErrUnknownAppointment
	}
	return a.Clone(), nil
}

// rebase points the next newer mutation of id at value, so that a later
// rollback of that mutation lands on value.
func (s *Store) rebase(id string, after uint64, value *appointment.Appointment) {
	var next *Mutation
	for _, seq := range s.pendingSeqs() {
		p := s.pending[seq]
		if p.ID == id && seq > after {
			next = p
			break
		}
	}
	if next == nil {
		return
	}
	if value == nil {
		next.Previous = nil
		return
	}
	next.Previous = value.Clone()
}

func (s *Store) restore(id string, value *appointment.Appointment) {
	if value == nil {
		s.remove(id)
		return
	}
	if value.ID != id {
		s.remove(id)
	}
	s.put(value.Clone())
}

func (s *Store) put(a *appointment.Appointment) {
	if i := s.index(a.ID); i >= 0 {
		s.items[i] = a
		return
	}
	s.items = append(s.items, a)
}

func (s *Store) remove(id string) {
	if i := s.index(id); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
}

func (s *Store) index(id string) int {
	for i, a := range s.items {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) nextSeq() uint64 {
	s.seq++
	return s.seq
}

func (s *Store) pendingSeqs() []uint64 {
	seqs := make([]uint64, 0, len(s.pending))
	for seq := range s.pending {
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	return seqs
}

func (s *Store) sort() {
	sort.SliceStable(s.items, func(i, j int) bool {
		if !s.items[i].Start.Equal(s.items[j].Start) {
			return s.items[i].Start.Before(s.items[j].Start)
		}
		return s.items[i].ID < s.items[j].ID
	})
}
