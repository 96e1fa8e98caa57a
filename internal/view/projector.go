package view

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"lab-allocation-backend/internal/model"
)

// Source is the read side of the store the projector builds snapshots from.
type Source interface {
	ListSystems(ctx context.Context) ([]model.System, error)
	ListRequests(ctx context.Context) ([]model.Request, error)
	Revision(ctx context.Context) (int64, error)
}

// Projector loads snapshots and fans them out to subscribers.
type Projector struct {
	src     Source
	log     *logrus.Logger
	timeout time.Duration
	now     func() time.Time

	mu        sync.Mutex
	subs      map[uint64]func(Snapshot)
	nextID    uint64
	delivered int64

	inflight sync.WaitGroup
}

// NewProjector creates a projector over src. Each background reload is bounded by timeout.
func NewProjector(src Source, log *logrus.Logger, timeout time.Duration) *Projector {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Projector{
		src:       src,
		log:       log,
		timeout:   timeout,
		now:       func() time.Time { return time.Now().UTC() },
		subs:      make(map[uint64]func(Snapshot)),
		delivered: -1,
	}
}

// Subscribe registers onChange for every future snapshot. Calling the returned
// function removes the subscription; it is safe to call more than once.
func (p *Projector) Subscribe(onChange func(Snapshot)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = onChange
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

// Publish reloads a snapshot in the background and delivers it to every subscriber.
// It never blocks the caller.
func (p *Projector) Publish() {
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		snap, err := p.Current(ctx)
		if err != nil {
			p.log.WithError(err).Warn("projector: failed to load snapshot")
			return
		}
		p.deliver(snap)
	}()
}

// Current loads a fresh snapshot without notifying anyone.
func (p *Projector) Current(ctx context.Context) (Snapshot, error) {
	rev, err := p.src.Revision(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	systems, err := p.src.ListSystems(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	requests, err := p.src.ListRequests(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Systems: systems, Requests: requests, Revision: rev, TakenAt: p.now()}, nil
}

// Wait blocks until every in-flight Publish has delivered or given up.
func (p *Projector) Wait() {
	p.inflight.Wait()
}

func (p *Projector) deliver(snap Snapshot) {
	p.mu.Lock()
	if snap.Revision <= p.delivered {
		p.mu.Unlock()
		p.log.WithField("revision", snap.Revision).Debug("projector: dropping stale snapshot")
		return
	}
	p.delivered = snap.Revision
	callbacks := make([]func(Snapshot), 0, len(p.subs))
	for _, fn := range p.subs {
		callbacks = append(callbacks, fn)
	}
	p.mu.Unlock()

	for _, fn := range callbacks {
		p.inflight.Add(1)
		go func(fn func(Snapshot)) {
			defer p.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					p.log.WithFields(logrus.Fields{
						"revision": snap.Revision,
						"panic":    fmt.Sprint(r),
					}).Errorf("projector: subscriber panicked\n%s", debug.Stack())
				}
			}()
			fn(snap)
		}(fn)
	}
}
