package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"heist/config"
	"heist/keylock"
	"heist/metrics"
	"heist/service"

	log "github.com/sirupsen/logrus"
)

// StepHandler advances the flows of one namespace. It receives a copy of the
// session and must not keep it.
type StepHandler interface {
	Step(ctx context.Context, sess Session, input string) (Step, error)
}

// StepFunc adapts a function to StepHandler
type StepFunc func(ctx context.Context, sess Session, input string) (Step, error)

func (f StepFunc) Step(ctx context.Context, sess Session, input string) (Step, error) {
	return f(ctx, sess, input)
}

var cancelKeywords = map[string]struct{}{
	"cancel":  {},
	"/cancel": {},
	"stop":    {},
	"الغاء":   {},
	"إلغاء":   {},
}

// IsCancel reports whether input asks to leave the current flow
func IsCancel(input string) bool {
	_, ok := cancelKeywords[strings.ToLower(strings.TrimSpace(input))]
	return ok
}

// Machine holds one session per actor and scope and routes input to the
// handler of the session's namespace. Dispatches for the same key run one at
// a time.
type Machine struct {
	handlers map[Namespace]StepHandler
	locks    *keylock.Map[Key]
	timeout  time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[Key]*Session
}

// NewMachine fails unless every namespace has a handler
func NewMachine(handlers map[Namespace]StepHandler, cfg *config.Config) (*Machine, error) {
	for _, ns := range Namespaces {
		if handlers[ns] == nil {
			return nil, fmt.Errorf("no step handler for namespace %q", ns)
		}
	}
	return &Machine{
		handlers: handlers,
		locks:    keylock.New[Key](),
		timeout:  cfg.StorageTimeout,
		now:      time.Now,
		sessions: make(map[Key]*Session),
	}, nil
}

// Begin starts a flow, replacing any session the actor had in this scope.
// It returns the prompt of the initial state.
func (m *Machine) Begin(actorID, scopeID int64, initial State, payload Payload) (string, error) {
	if !initial.Valid() {
		return "", fmt.Errorf("unknown state %q", initial)
	}

	key := Key{ActorID: actorID, ScopeID: scopeID}
	unlock := m.locks.Lock(key)
	defer unlock()

	sess := &Session{
		ActorID:   actorID,
		ScopeID:   scopeID,
		State:     initial,
		Payload:   Payload{},
		UpdatedAt: m.now(),
	}
	for k, v := range payload {
		sess.Payload[k] = v
	}
	m.store(key, sess)

	log.WithFields(log.Fields{
		"actorID": actorID,
		"scopeID": scopeID,
		"state":   initial,
	}).Debug("Conversation started")
	return initial.Prompt(), nil
}

// Dispatch feeds one message into the actor's session. Rejected input keeps
// the session and is reported through Outcome.Err. A returned error means a
// system failure; the session is gone and the actor may retry later.
func (m *Machine) Dispatch(ctx context.Context, actorID, scopeID int64, input string) (Outcome, error) {
	key := Key{ActorID: actorID, ScopeID: scopeID}
	unlock := m.locks.Lock(key)
	defer unlock()

	sess := m.load(key)
	if sess == nil {
		metrics.ConversationDispatches.WithLabelValues("none", NoSession.String()).Inc()
		return Outcome{Kind: NoSession}, nil
	}
	ns := sess.State.Namespace()
	input = strings.TrimSpace(input)

	if IsCancel(input) {
		m.remove(key)
		metrics.ConversationDispatches.WithLabelValues(string(ns), Aborted.String()).Inc()
		return Outcome{Kind: Aborted, State: sess.State, Reply: "Cancelled."}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	step, err := m.handlers[ns].Step(ctx, sess.clone(), input)
	if err != nil {
		return m.reject(key, sess, err)
	}

	switch {
	case step.Abort:
		m.remove(key)
		metrics.ConversationDispatches.WithLabelValues(string(ns), Aborted.String()).Inc()
		return Outcome{Kind: Aborted, State: sess.State, Reply: step.Reply}, nil

	case step.Next == "":
		m.remove(key)
		metrics.ConversationDispatches.WithLabelValues(string(ns), Completed.String()).Inc()
		log.WithFields(log.Fields{
			"actorID": actorID,
			"scopeID": scopeID,
			"state":   sess.State,
		}).Debug("Conversation completed")
		return Outcome{Kind: Completed, State: sess.State, Reply: step.Reply}, nil

	case !step.Next.Valid():
		m.remove(key)
		metrics.ConversationDispatches.WithLabelValues(string(ns), "error").Inc()
		return Outcome{}, fmt.Errorf("handler for %s returned unknown state %q", ns, step.Next)
	}

	next := sess.clone()
	for k, v := range step.Set {
		next.Payload[k] = v
	}
	next.State = step.Next
	next.UpdatedAt = m.now()
	m.store(key, &next)

	reply := step.Reply
	if reply == "" {
		reply = step.Next.Prompt()
	}
	metrics.ConversationDispatches.WithLabelValues(string(ns), Advanced.String()).Inc()
	return Outcome{Kind: Advanced, State: step.Next, Reply: reply}, nil
}

// reject applies the error policy: correctable input keeps the session,
// business rejections end the flow, anything else ends it and is returned.
func (m *Machine) reject(key Key, sess *Session, err error) (Outcome, error) {
	ns := string(sess.State.Namespace())

	switch service.KindOf(err) {
	case service.KindValidation, service.KindInsufficientFunds:
		m.touch(sess)
		metrics.ConversationDispatches.WithLabelValues(ns, "retained").Inc()
		return Outcome{
			Kind:  Advanced,
			State: sess.State,
			Reply: err.Error() + "\n" + sess.State.Prompt(),
			Err:   err,
		}, nil

	case service.KindNotRegistered, service.KindPermissionDenied, service.KindNoFundsToSteal:
		m.remove(key)
		metrics.ConversationDispatches.WithLabelValues(ns, Aborted.String()).Inc()
		return Outcome{Kind: Aborted, State: sess.State, Reply: err.Error(), Err: err}, nil
	}

	m.remove(key)
	metrics.ConversationDispatches.WithLabelValues(ns, "error").Inc()
	log.WithFields(log.Fields{
		"actorID":   key.ActorID,
		"scopeID":   key.ScopeID,
		"state":     sess.State,
		"retryable": service.Retryable(err),
		"error":     err,
	}).Warn("Conversation ended by system error")
	return Outcome{}, fmt.Errorf("dispatch in %s: %w", sess.State, err)
}

// Cancel drops the actor's session in a scope and reports whether one existed
func (m *Machine) Cancel(actorID, scopeID int64) bool {
	key := Key{ActorID: actorID, ScopeID: scopeID}
	unlock := m.locks.Lock(key)
	defer unlock()
	return m.remove(key)
}

// Current returns a copy of the actor's session
func (m *Machine) Current(actorID, scopeID int64) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[Key{ActorID: actorID, ScopeID: scopeID}]
	if !ok {
		return Session{}, false
	}
	return sess.clone(), true
}

// Sweep drops sessions idle for longer than maxAge and returns how many went.
// Each expired key is re-checked under its dispatch lock, so a session that is
// being advanced is never removed underneath its handler.
func (m *Machine) Sweep(maxAge time.Duration) int {
	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	var expired []Key
	for key, sess := range m.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			expired = append(expired, key)
		}
	}
	m.mu.Unlock()

	removed := 0
	for _, key := range expired {
		if m.removeIfIdle(key, cutoff) {
			removed++
		}
	}
	return removed
}

func (m *Machine) removeIfIdle(key Key, cutoff time.Time) bool {
	unlock := m.locks.Lock(key)
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[key]
	if !ok || !sess.UpdatedAt.Before(cutoff) {
		return false
	}
	delete(m.sessions, key)
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return true
}

// RunSweeper sweeps idle sessions every interval until ctx is done
func (m *Machine) RunSweeper(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(maxAge); n > 0 {
				log.WithField("count", n).Info("Swept idle conversation sessions")
			}
		}
	}
}

func (m *Machine) load(key Key) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[key]
}

func (m *Machine) store(key Key, sess *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key] = sess
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
}

func (m *Machine) touch(sess *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess.UpdatedAt = m.now()
}

func (m *Machine) remove(key Key) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[key]
	delete(m.sessions, key)
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return ok
}
