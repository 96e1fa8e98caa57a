package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"

	"lab-allocation-backend/internal/metrics"
	"lab-allocation-backend/internal/model"
	"lab-allocation-backend/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// payload is the JSON body the service worker receives.
type payload struct {
	Title string `json:"title"`
	model.Event
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan model.Event
	subs    store.SubscriptionStore
	webpush *webpush.Options
	sender  NotificationSender
	log     *logrus.Logger
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewWorkerPool creates a new worker pool with a queue of queueSize pending events.
func NewWorkerPool(size, queueSize int, subs store.SubscriptionStore, webpushOptions *webpush.Options, log *logrus.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	if queueSize < 1 {
		queueSize = size
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan model.Event, queueSize),
		subs:    subs,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
		log:     log,
	}
}

// Start launches the worker goroutines. They stop when ctx is cancelled.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Wait blocks until every worker has stopped.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	log := wp.log.WithField("worker", id)
	log.Debug("notification worker started")
	for {
		select {
		case ev, ok := <-wp.jobs:
			if !ok {
				log.Debug("notification queue drained, worker exiting")
				return
			}
			log.WithFields(logrus.Fields{
				"kind":       ev.Kind,
				"request_id": ev.RequestID,
			}).Debug("processing notification")
			wp.deliver(ctx, ev)
		case <-ctx.Done():
			log.Debug("notification worker shutting down")
			return
		}
	}
}

// Close stops accepting events. Workers deliver whatever is already queued and then
// exit; cancelling the Start context still aborts them early.
func (wp *WorkerPool) Close() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if !wp.closed {
		wp.closed = true
		close(wp.jobs)
	}
}

// Dispatch queues an event without blocking. When the queue is full or the pool is
// closed the event is dropped.
func (wp *WorkerPool) Dispatch(ev model.Event) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		metrics.ObserveNotification(metrics.NotifyDropped)
		wp.log.WithField("kind", ev.Kind).Warn("notification pool closed, dropping event")
		return
	}

	select {
	case wp.jobs <- ev:
	default:
		metrics.ObserveNotification(metrics.NotifyDropped)
		wp.log.WithFields(logrus.Fields{
			"kind":      ev.Kind,
			"recipient": ev.RecipientLoginID,
		}).Warn("notification queue full, dropping event")
	}
}

func (wp *WorkerPool) deliver(ctx context.Context, ev model.Event) {
	subscriptions, err := wp.subs.ListSubscriptions(ctx, ev.RecipientLoginID)
	if err != nil {
		metrics.ObserveNotification(metrics.NotifyFailed)
		wp.log.WithError(err).WithField("recipient", ev.RecipientLoginID).Error("failed to load push subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		metrics.ObserveNotification(metrics.NotifyNoSubs)
		return
	}

	body, err := json.Marshal(payload{Title: "Lab allocation update", Event: ev})
	if err != nil {
		metrics.ObserveNotification(metrics.NotifyFailed)
		wp.log.WithError(err).Error("failed to encode notification payload")
		return
	}

	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, body)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, body []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	log := wp.log.WithField("endpoint", sub.Endpoint)
	resp, err := wp.sender.Send(body, wpSub, wp.webpush)
	if err != nil {
		metrics.ObserveNotification(metrics.NotifyFailed)
		log.WithError(err).Warn("failed to send notification")
		return
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone:
		metrics.ObserveNotification(metrics.NotifyGone)
		log.Info("push subscription expired, deleting")
		if err := wp.subs.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.WithError(err).Error("failed to delete expired subscription")
		}
	case resp.StatusCode >= 400:
		metrics.ObserveNotification(metrics.NotifyFailed)
		log.WithField("status", resp.StatusCode).Warn("push service rejected notification")
	default:
		metrics.ObserveNotification(metrics.NotifySent)
	}
}

// NoopNotifier discards events. It stands in for the worker pool when push is not configured.
type NoopNotifier struct {
	Log *logrus.Logger
}

// Dispatch implements engine.Notifier.
func (n NoopNotifier) Dispatch(ev model.Event) {
	if n.Log != nil {
		n.Log.WithField("kind", ev.Kind).Debug("push disabled, notification discarded")
	}
}
