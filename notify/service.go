package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"heist/config"
	"heist/events"
	"heist/metrics"
	"heist/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrQueueFull is returned by Broadcast when delivery is backed up
var ErrQueueFull = errors.New("notification queue is full")

// Service queues notifications and delivers them to every sender on a fixed
// pool of workers. Enqueueing never blocks.
type Service struct {
	senders []Sender
	queue   chan Notification
	workers int
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

// NewService creates a notification service; call Start to begin delivery
func NewService(senders []Sender, cfg *config.Config) *Service {
	return &Service{
		senders: senders,
		queue:   make(chan Notification, max(cfg.NotifyQueueSize, 1)),
		workers: max(cfg.NotifyWorkers, 1),
		timeout: cfg.StorageTimeout,
		now:     time.Now,
	}
}

// Subscribe turns committed domain events into notifications
func (s *Service) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventTypeTheftSucceeded, func(_ context.Context, e events.Event) {
		ev, ok := e.(events.TheftSucceededEvent)
		if !ok {
			return
		}
		s.Notify(KindTheftVictim, ev.TargetID,
			fmt.Sprintf("%s robbed you of %d. You have %d cash left.", displayName(ev.ThiefUsername, ev.ThiefID), ev.Amount, ev.TargetCashLeft))
	})
	bus.Subscribe(events.EventTypeTheftFailed, func(_ context.Context, e events.Event) {
		ev, ok := e.(events.TheftFailedEvent)
		if !ok {
			return
		}
		s.Notify(KindTheftFoiled, ev.TargetID,
			fmt.Sprintf("%s tried to rob you and was caught.", displayName(ev.ThiefUsername, ev.ThiefID)))
	})
	bus.Subscribe(events.EventTypeBalanceChange, func(_ context.Context, e events.Event) {
		ev, ok := e.(events.BalanceChangeEvent)
		if !ok || ev.Category != models.CategoryTransfer || ev.ChangeAmount <= 0 {
			return
		}
		s.Notify(KindTransferIn, ev.ActorID,
			fmt.Sprintf("You received %d cash. You now have %d.", ev.ChangeAmount, ev.NewCash))
	})
	bus.Subscribe(events.EventTypeRoleChanged, func(_ context.Context, e events.Event) {
		ev, ok := e.(events.RoleChangedEvent)
		if !ok {
			return
		}
		role := strings.ReplaceAll(string(ev.Role), "_", " ")
		text := fmt.Sprintf("You are no longer a %s in server %d.", role, ev.ScopeID)
		if ev.Granted {
			text = fmt.Sprintf("You are now a %s in server %d.", role, ev.ScopeID)
		}
		s.Notify(KindRoleChanged, ev.ActorID, text)
	})
}

func displayName(username string, id int64) string {
	if username != "" {
		return username
	}
	return fmt.Sprintf("<@%d>", id)
}

// Notify queues a message for one recipient and reports whether it was accepted
func (s *Service) Notify(kind Kind, recipientID int64, text string) bool {
	return s.enqueue(Notification{Kind: kind, RecipientID: recipientID, Text: text})
}

// Broadcast queues an announcement for everyone
func (s *Service) Broadcast(_ context.Context, fromID int64, text string) error {
	if !s.enqueue(Notification{Kind: KindBroadcast, SenderID: fromID, Text: text}) {
		return ErrQueueFull
	}
	log.WithField("senderID", fromID).Info("Broadcast queued")
	return nil
}

func (s *Service) enqueue(n Notification) bool {
	n.ID = uuid.NewString()
	n.CreatedAt = s.now()

	select {
	case s.queue <- n:
		return true
	default:
		metrics.NotificationsTotal.WithLabelValues("queue", "dropped").Inc()
		log.WithFields(log.Fields{
			"kind":        n.Kind,
			"recipientID": n.RecipientID,
		}).Warn("Notification queue full, dropping notification")
		return false
	}
}

// Start launches the workers. They stop when ctx is done; pending
// notifications are dropped.
func (s *Service) Start(ctx context.Context) {
	for range s.workers {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.work(ctx)
		}()
	}
	log.WithFields(log.Fields{
		"workers": s.workers,
		"senders": len(s.senders),
	}).Info("Notification service started")
}

// Wait blocks until every worker has exited
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-s.queue:
			s.deliver(ctx, n)
		}
	}
}

func (s *Service) deliver(ctx context.Context, n Notification) {
	for _, sender := range s.senders {
		sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := sender.Send(sendCtx, n)
		cancel()

		if err != nil {
			metrics.NotificationsTotal.WithLabelValues(sender.Name(), "failed").Inc()
			log.WithFields(log.Fields{
				"sink":        sender.Name(),
				"kind":        n.Kind,
				"recipientID": n.RecipientID,
				"error":       err,
			}).Warn("Failed to deliver notification")
			continue
		}
		metrics.NotificationsTotal.WithLabelValues(sender.Name(), "sent").Inc()
	}
}
