package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-service/internal/config"
	"github.com/spec-kit/campus-service/internal/domain"
	"github.com/spec-kit/campus-service/internal/events"
	"github.com/spec-kit/campus-service/internal/repository"
)

// PushMessage is the body delivered to push endpoints.
type PushMessage struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Pusher delivers one push message and reports the endpoint's status code.
type Pusher interface {
	Push(ctx context.Context, endpoint string, msg PushMessage) (int, error)
}

// HTTPPusher posts push messages as JSON with fiber's client.
type HTTPPusher struct {
	Timeout time.Duration
}

// Push implements Pusher. The request is bounded by Timeout and by ctx's deadline,
// whichever is sooner; a done ctx sends nothing.
func (p HTTPPusher) Push(ctx context.Context, endpoint string, msg PushMessage) (int, error) {
	timeout, err := p.timeoutFor(ctx)
	if err != nil {
		return 0, err
	}
	agent := fiber.Post(endpoint).JSON(msg).Set("TTL", "60")
	if timeout > 0 {
		agent = agent.Timeout(timeout)
	}
	status, _, errs := agent.Bytes()
	if len(errs) > 0 {
		return status, errors.Join(errs...)
	}
	return status, nil
}

func (p HTTPPusher) timeoutFor(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	timeout := p.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, context.DeadlineExceeded
		}
		if timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	return timeout, nil
}

// NotificationService delivers push notifications for published news.
type NotificationService struct {
	dispatcher    events.Dispatcher
	subscriptions repository.SubscriptionRepository
	pusher        Pusher
	logger        *zap.Logger
	cfg           config.NotificationConfig
	queue         chan domain.News
}

// NewNotificationService creates the service. With queueSize > 0 deliveries are
// queued for a worker instead of running inside the publishing request.
func NewNotificationService(dispatcher events.Dispatcher, subscriptions repository.SubscriptionRepository, pusher Pusher, logger *zap.Logger, cfg config.NotificationConfig, queueSize int) *NotificationService {
	n := &NotificationService{
		dispatcher:    dispatcher,
		subscriptions: subscriptions,
		pusher:        pusher,
		logger:        nopIfNil(logger),
		cfg:           cfg,
	}
	if queueSize > 0 {
		n.queue = make(chan domain.News, queueSize)
	}
	return n
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventNewsCreated, n.handleNewsCreated)
}

// Queue exposes pending deliveries; nil when delivery is synchronous.
func (n *NotificationService) Queue() <-chan domain.News {
	return n.queue
}

func (n *NotificationService) handleNewsCreated(ctx context.Context, event events.Event) error {
	var news domain.News
	switch p := event.Payload.(type) {
	case events.NewsCreatedPayload:
		news = p.News
	case *events.NewsCreatedPayload:
		news = p.News
	default:
		n.logger.Warn("unexpected news payload", zap.String("event_id", event.ID))
		return nil
	}

	if n.queue == nil {
		return n.NotifyNews(ctx, news)
	}
	select {
	case n.queue <- news:
	default:
		n.logger.Warn("notification queue full, dropping news push", zap.String("news_id", news.ID))
	}
	return nil
}

// NotifyNews pushes news to every stored subscription. Endpoints reporting
// 404 or 410 are removed. Individual failures are logged and do not stop delivery.
func (n *NotificationService) NotifyNews(ctx context.Context, news domain.News) error {
	subs, err := n.subscriptions.List(ctx)
	if err != nil {
		return err
	}
	msg := PushMessage{Title: n.cfg.PushTitle, Body: news.Title}

	var delivered int
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			n.logger.Warn("news push interrupted",
				zap.String("news_id", news.ID),
				zap.Int("delivered", delivered),
				zap.Error(err))
			return err
		}
		status, err := n.pusher.Push(ctx, sub.Endpoint, msg)
		switch {
		case status == http.StatusNotFound || status == http.StatusGone:
			if err := n.subscriptions.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
				n.logger.Warn("remove stale push subscription", zap.String("subscription_id", sub.ID), zap.Error(err))
			}
		case err != nil:
			n.logger.Warn("push delivery failed", zap.String("subscription_id", sub.ID), zap.Error(err))
		case status >= http.StatusBadRequest:
			n.logger.Warn("push endpoint rejected message", zap.String("subscription_id", sub.ID), zap.Int("status", status))
		default:
			delivered++
		}
	}
	n.logger.Debug("news push finished",
		zap.String("news_id", news.ID),
		zap.Int("subscriptions", len(subs)),
		zap.Int("delivered", delivered))
	return nil
}
