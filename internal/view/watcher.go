package view

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// RevisionSource reports the store revision.
type RevisionSource interface {
	Revision(ctx context.Context) (int64, error)
}

// Watcher publishes a snapshot whenever the store revision moves, which catches
// writes made by other processes sharing the database.
type Watcher struct {
	src       RevisionSource
	projector *Projector
	interval  time.Duration
	log       *logrus.Logger

	last int64
}

// NewWatcher creates a watcher polling src every interval.
func NewWatcher(src RevisionSource, projector *Projector, interval time.Duration, log *logrus.Logger) *Watcher {
	return &Watcher{src: src, projector: projector, interval: interval, log: log, last: -1}
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	w.log.WithField("interval", w.interval).Info("starting revision watcher")

	w.PollOnce(ctx)

	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("revision watcher shutting down")
			return
		case <-timer.C:
			w.PollOnce(ctx)
			timer.Reset(w.interval)
		}
	}
}

// PollOnce reads the revision and publishes when it differs from the last one seen.
// It reports whether a publish was triggered.
func (w *Watcher) PollOnce(ctx context.Context) bool {
	rev, err := w.src.Revision(ctx)
	if err != nil {
		w.log.WithError(err).Warn("revision watcher: failed to read revision")
		return false
	}
	if rev == w.last {
		return false
	}
	w.log.WithFields(logrus.Fields{"from": w.last, "to": rev}).Debug("store revision changed")
	w.last = rev
	w.projector.Publish()
	return true
}
