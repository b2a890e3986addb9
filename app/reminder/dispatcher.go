package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/syncs"
	"github.com/robfig/cron/v3"

	"github.com/MusClub-NSU/MusClub-manager/app/store"
)

// DefaultSpec is the dispatch schedule used when none is set
const DefaultSpec = "@every 1m"

const dispatchKey = "dispatch"

// DispatchStore defines persistence used by Dispatcher
type DispatchStore interface {
	DueNotifications(ctx context.Context, now time.Time, limit int) ([]store.Notification, error)
	MarkNotificationSent(ctx context.Context, id int64, at time.Time) error
	MarkNotificationFailed(ctx context.Context, id int64) error
}

// Sender delivers a message to a single recipient
type Sender interface {
	Send(ctx context.Context, to, subj, text string) error
}

// Cron interface defines robfig/cron methods used by dispatcher
type Cron interface {
	AddFunc(spec string, cmd func()) (cron.EntryID, error)
	Start()
	Stop() context.Context
}

// Repeater repeats failed function
type Repeater interface {
	Do(ctx context.Context, fun func() error, errors ...error) (err error)
}

// Dispatcher periodically sends due reminders
type Dispatcher struct {
	Store       DispatchStore
	Sender      Sender
	Cron        Cron
	Repeater    Repeater
	Spec        string
	Concurrency int
	BatchSize   int
	SendTimeout time.Duration
	Now         func() time.Time

	dedup     *DeDup
	dedupOnce sync.Once
}

// Stats reports the result of one dispatch run
type Stats struct {
	Due    int
	Sent   int
	Failed int
}

// Do runs the dispatcher until ctx is canceled, blocking
func (d *Dispatcher) Do(ctx context.Context) error {
	spec := d.Spec
	if spec == "" {
		spec = DefaultSpec
	}
	if _, err := d.Cron.AddFunc(spec, func() {
		if _, err := d.Dispatch(ctx); err != nil {
			log.Printf("[WARN] reminder dispatch failed, %v", err)
		}
	}); err != nil {
		return fmt.Errorf("can't schedule reminder dispatch %q: %w", spec, err)
	}
	log.Printf("[INFO] reminder dispatcher started, schedule %q", spec)
	d.Cron.Start()
	<-ctx.Done()
	log.Print("[DEBUG] terminate reminder dispatcher")
	<-d.Cron.Stop().Done()
	return nil
}

// Dispatch sends all due reminders once. A run is skipped while the previous one is still active.
func (d *Dispatcher) Dispatch(ctx context.Context) (Stats, error) {
	d.dedupOnce.Do(func() { d.dedup = NewDeDup() })
	if !d.dedup.Add(dispatchKey) {
		log.Printf("[DEBUG] reminder dispatch is still active since %s, skip",
			d.dedup.Since(dispatchKey).Format(time.RFC3339))
		return Stats{}, nil
	}
	defer d.dedup.Remove(dispatchKey)

	due, err := d.Store.DueNotifications(ctx, d.now(), d.BatchSize)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to load due reminders: %w", err)
	}
	if len(due) == 0 {
		return Stats{}, nil
	}
	log.Printf("[INFO] processing %d pending reminders", len(due))

	concur := d.Concurrency
	if concur <= 0 {
		concur = 1
	}
	var sent, failed int32
	gr := syncs.NewSizedGroup(concur, syncs.Context(ctx))
	for _, n := range due {
		gr.Go(func(ctx context.Context) {
			if err := d.deliver(ctx, n); err != nil {
				if ctx.Err() != nil {
					log.Printf("[INFO] reminder %d left pending, dispatch interrupted: %v", n.ID, err)
					return
				}
				log.Printf("[WARN] failed to send reminder %d to user %d, %v", n.ID, n.UserID, err)
				atomic.AddInt32(&failed, 1)
				if err := d.Store.MarkNotificationFailed(context.WithoutCancel(ctx), n.ID); err != nil {
					log.Printf("[ERROR] can't mark reminder %d failed, %v", n.ID, err)
				}
				return
			}
			atomic.AddInt32(&sent, 1)
			if err := d.Store.MarkNotificationSent(context.WithoutCancel(ctx), n.ID, d.now()); err != nil {
				log.Printf("[ERROR] can't mark reminder %d sent, %v", n.ID, err)
			}
		})
	}
	gr.Wait()

	res := Stats{Due: len(due), Sent: int(sent), Failed: int(failed)}
	log.Printf("[INFO] reminders dispatched, sent=%d, failed=%d", res.Sent, res.Failed)
	return res, nil
}

// deliver sends one reminder with retries
func (d *Dispatcher) deliver(ctx context.Context, n store.Notification) error {
	if n.Email == "" {
		return errors.New("recipient has no email")
	}
	send := func() error {
		sendCtx := ctx
		if d.SendTimeout > 0 {
			var cancel context.CancelFunc
			sendCtx, cancel = context.WithTimeout(ctx, d.SendTimeout)
			defer cancel()
		}
		return d.Sender.Send(sendCtx, n.Email, n.Subject, n.Body)
	}
	if d.Repeater == nil {
		return send()
	}
	return d.Repeater.Do(ctx, send)
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}
