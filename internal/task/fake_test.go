package task

import (
	"context"
	"errors"
	"sync"
	"time"
)

type published struct {
	task  Task
	delay time.Duration
}

type fakeBroker struct {
	mu         sync.Mutex
	published  []published
	publishErr error
	deliveries chan Delivery
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{deliveries: make(chan Delivery, 16)}
}

func (b *fakeBroker) Publish(_ context.Context, t Task, delay time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, published{task: t, delay: delay})
	return nil
}

func (b *fakeBroker) Consume(context.Context) (<-chan Delivery, error) {
	return b.deliveries, nil
}

func (b *fakeBroker) Published() []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]published(nil), b.published...)
}

func (b *fakeBroker) last() Task {
	p := b.Published()
	return p[len(p)-1].task
}

type fakeDelivery struct {
	task Task

	mu      sync.Mutex
	acked   bool
	nacked  bool
	requeue bool
	settled chan struct{}
}

func newFakeDelivery(t Task) *fakeDelivery {
	return &fakeDelivery{task: t, settled: make(chan struct{})}
}

func (d *fakeDelivery) Task() Task { return d.task }

func (d *fakeDelivery) Ack() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.acked || d.nacked {
		return errors.New("already settled")
	}
	d.acked = true
	close(d.settled)
	return nil
}

func (d *fakeDelivery) Nack(requeue bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.acked || d.nacked {
		return errors.New("already settled")
	}
	d.nacked, d.requeue = true, requeue
	close(d.settled)
	return nil
}
