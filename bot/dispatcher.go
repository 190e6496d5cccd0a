package bot

import (
	"context"
	"strings"

	"heist/conversation"
	"heist/metrics"
	"heist/service"

	log "github.com/sirupsen/logrus"
)

const genericFailureNotice = "⚠️ Something went wrong on our side. Please try again in a moment."

// maxCommandWords bounds how many leading words are matched against command names
const maxCommandWords = 3

// Message is an inbound chat message reduced to what the dispatcher routes on.
// ScopeID is zero for direct messages.
type Message struct {
	ActorID  int64
	ScopeID  int64
	Username string
	Text     string
}

// Conversations is the state machine surface the dispatcher drives
type Conversations interface {
	Dispatch(ctx context.Context, actorID, scopeID int64, input string) (conversation.Outcome, error)
	Begin(actorID, scopeID int64, initial conversation.State, payload conversation.Payload) (string, error)
	Cancel(actorID, scopeID int64) bool
}

// commandFunc runs a stateless command with the words following its name
type commandFunc func(ctx context.Context, msg Message, args []string) (string, error)

// Dispatcher routes a message to the actor's conversation, a command or a
// keyword reply, in that order.
type Dispatcher struct {
	conversations Conversations
	ledger        service.LedgerService
	permissions   service.PermissionService
	keywords      service.KeywordService
	stats         service.StatsService
	salary        service.SalaryService
	commands      map[string]commandFunc
}

// NewDispatcher creates a dispatcher over the core services
func NewDispatcher(
	conversations Conversations,
	ledger service.LedgerService,
	permissions service.PermissionService,
	keywords service.KeywordService,
	stats service.StatsService,
	salary service.SalaryService,
) *Dispatcher {
	d := &Dispatcher{
		conversations: conversations,
		ledger:        ledger,
		permissions:   permissions,
		keywords:      keywords,
		stats:         stats,
		salary:        salary,
	}
	d.commands = d.commandTable()
	return d
}

// Handle returns the reply for one message, or "" when the message needs none
func (d *Dispatcher) Handle(ctx context.Context, msg Message) string {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return ""
	}
	logger := log.WithFields(log.Fields{
		"actorID": msg.ActorID,
		"scopeID": msg.ScopeID,
	})

	outcome, err := d.conversations.Dispatch(ctx, msg.ActorID, msg.ScopeID, text)
	if err != nil {
		metrics.MessagesRouted.WithLabelValues("conversation").Inc()
		logger.WithError(err).Error("Conversation dispatch failed")
		return genericFailureNotice
	}
	if outcome.Kind != conversation.NoSession {
		metrics.MessagesRouted.WithLabelValues("conversation").Inc()
		if outcome.Err != nil {
			return "❌ " + outcome.Reply
		}
		return outcome.Reply
	}

	if cmd, args, ok := d.match(text); ok {
		metrics.MessagesRouted.WithLabelValues("command").Inc()
		reply, err := cmd(ctx, msg, args)
		if err != nil {
			return d.renderError(logger, err)
		}
		return reply
	}

	reply, found, err := d.keywords.Lookup(ctx, text, msg.ScopeID)
	if err != nil {
		logger.WithError(err).Warn("Keyword lookup failed")
		return ""
	}
	if !found {
		metrics.MessagesRouted.WithLabelValues("ignored").Inc()
		return ""
	}
	metrics.MessagesRouted.WithLabelValues("keyword").Inc()
	return reply
}

// match finds the longest command name at the start of text
func (d *Dispatcher) match(text string) (commandFunc, []string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, nil, false
	}
	fields[0] = strings.TrimLeft(fields[0], "!/")

	for n := min(maxCommandWords, len(fields)); n >= 1; n-- {
		name := strings.ToLower(strings.Join(fields[:n], " "))
		if cmd, ok := d.commands[name]; ok {
			return cmd, fields[n:], true
		}
	}
	return nil, nil, false
}

// renderError turns rule violations into a message for the actor and hides system failures
func (d *Dispatcher) renderError(logger *log.Entry, err error) string {
	if service.IsBusinessError(err) {
		return "❌ " + err.Error()
	}
	logger.WithFields(log.Fields{
		"kind":      service.KindOf(err),
		"retryable": service.Retryable(err),
	}).WithError(err).Error("Command failed")
	return genericFailureNotice
}

// begin starts a guided flow and returns its first prompt
func (d *Dispatcher) begin(msg Message, state conversation.State, payload conversation.Payload) (string, error) {
	return d.conversations.Begin(msg.ActorID, msg.ScopeID, state, payload)
}

// scope returns the permission scope of the message, nil for direct messages
func scope(msg Message) *int64 {
	if msg.ScopeID == 0 {
		return nil
	}
	id := msg.ScopeID
	return &id
}
