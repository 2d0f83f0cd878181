package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/campus-service/internal/service"
)

// NotificationWorker drains queued news deliveries.
type NotificationWorker struct {
	svc     *service.NotificationService
	workers int
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// StartNotificationWorker registers notification handlers and, when the
// service queues deliveries, starts workers goroutines to drain the queue.
func StartNotificationWorker(ctx context.Context, svc *service.NotificationService, workers int, logger *zap.Logger) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &NotificationWorker{svc: svc, workers: workers, logger: logger}
	if svc == nil {
		return w
	}
	svc.RegisterHandlers()

	queue := svc.Queue()
	if queue == nil {
		return w
	}
	if w.workers <= 0 {
		w.workers = 1
	}
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case news := <-queue:
					if err := svc.NotifyNews(ctx, news); err != nil {
						w.logger.Warn("news notification failed", zap.String("news_id", news.ID), zap.Error(err))
					}
				}
			}
		}()
	}
	return w
}

// Wait blocks until every worker goroutine has stopped.
func (w *NotificationWorker) Wait() {
	w.wg.Wait()
}
