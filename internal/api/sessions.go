package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/natindo/poolmini/internal/models"
	"github.com/natindo/poolmini/internal/services"
	"github.com/natindo/poolmini/internal/wizard"
)

// FinalizeFunc persists a finished aggregate.
type FinalizeFunc func(ctx context.Context, kind wizard.Kind, owner services.Owner, data wizard.Fields) (models.Created, error)

// session is one web wizard. Its mutex serializes requests on the same id.
type session struct {
	mu       sync.Mutex
	id       string
	kind     wizard.Kind
	creator  string
	host     *wizard.Host
	created  *models.Created
	lastSeen time.Time
}

func (s *session) state() models.CreationState {
	step := s.host.Step()
	def := s.host.Definition()
	spec, _ := def.Step(step)
	return models.CreationState{
		SessionID:   s.id,
		Kind:        string(s.kind),
		Step:        step,
		TotalSteps:  def.TotalSteps(),
		StepName:    spec.Name,
		Data:        s.host.Data(),
		InitialData: s.host.InitialData(),
	}
}

// Sessions is the registry of open web wizards. Sessions idle longer than
// ttl are discarded without persisting anything.
type Sessions struct {
	mu   sync.Mutex
	byID map[string]*session
	ttl  time.Duration
	now  func() time.Time
}

func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		byID: make(map[string]*session),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Open starts a new session of kind at step 1.
func (s *Sessions) Open(kind wizard.Kind, creator string, finalize FinalizeFunc) (*session, error) {
	def, ok := wizard.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", services.ErrUnknownKind, kind)
	}

	sess := &session{
		id:       uuid.NewString(),
		kind:     kind,
		creator:  creator,
		lastSeen: s.now(),
	}
	sess.host = wizard.NewHost(def, wizard.Hooks{
		OnComplete: func(ctx context.Context, data wizard.Fields) error {
			created, err := finalize(ctx, kind, services.Owner{Name: creator}, data)
			if err != nil {
				return err
			}
			sess.created = &created
			return nil
		},
	})
	sess.host.Open()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.byID[sess.id] = sess
	return sess, nil
}

// Get returns a live session and refreshes its idle timer.
func (s *Sessions) Get(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if s.expired(sess, now) {
		delete(s.byID, id)
		return nil, false
	}
	sess.lastSeen = now
	return sess, true
}

// Discard drops a session. It reports whether the session existed.
func (s *Sessions) Discard(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[id]
	if ok {
		delete(s.byID, id)
	}
	return ok && !s.expired(sess, s.now())
}

// Len returns the number of tracked sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Sweep discards expired sessions and returns how many were dropped.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

func (s *Sessions) sweepLocked() int {
	now := s.now()
	n := 0
	for id, sess := range s.byID {
		if s.expired(sess, now) {
			delete(s.byID, id)
			n++
		}
	}
	return n
}

func (s *Sessions) expired(sess *session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.lastSeen) > s.ttl
}
