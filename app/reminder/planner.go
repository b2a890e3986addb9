// Package reminder schedules e-mail reminders for event members and delivers them when due.
// Planner stores pending reminders, Dispatcher is a cron job sending due ones with retries
// and bounded concurrency.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/MusClub-NSU/MusClub-manager/app/club"
	"github.com/MusClub-NSU/MusClub-manager/app/enums"
	"github.com/MusClub-NSU/MusClub-manager/app/notify"
	"github.com/MusClub-NSU/MusClub-manager/app/store"
)

// DefaultLead is how long before the event start a reminder is sent
const DefaultLead = 24 * time.Hour

// lateDelay is used when the send time is already in the past
const lateDelay = time.Minute

// PlannerStore defines persistence used by Planner
type PlannerStore interface {
	GetEvent(ctx context.Context, id int64) (store.Event, error)
	ListMembers(ctx context.Context, eventID int64) ([]store.Member, error)
	NotificationExists(ctx context.Context, eventID, userID int64, sendAt time.Time, status enums.NotificationStatus) (bool, error)
	CreateNotification(ctx context.Context, n store.Notification) (store.Notification, error)
	ListNotifications(ctx context.Context, eventID int64) ([]store.Notification, error)
}

// Renderer makes html body of a reminder
type Renderer interface {
	MakeReminderHTML(d notify.ReminderData) (string, error)
}

// Summary reports the result of scheduling reminders for an event
type Summary struct {
	EventID          int64
	SendAt           time.Time
	Created          int
	SkippedNoEmail   int
	SkippedDuplicate int
}

// Planner creates pending reminders for event members
type Planner struct {
	Store    PlannerStore
	Renderer Renderer
	Lead     time.Duration
	Now      func() time.Time
}

// Schedule stores a pending reminder for every member of the event with an e-mail.
// Members without e-mail and members already having the same pending reminder are skipped.
func (p *Planner) Schedule(ctx context.Context, eventID int64) (Summary, error) {
	ev, err := p.getEvent(ctx, eventID)
	if err != nil {
		return Summary{}, err
	}
	if ev.StartTime.IsZero() {
		return Summary{}, club.NewError(club.KindValidation, "event start time is required to schedule notifications", nil)
	}

	now := p.now()
	res := Summary{EventID: eventID, SendAt: p.sendTime(ev.StartTime, now)}

	members, err := p.Store.ListMembers(ctx, eventID)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list members of event %d: %w", eventID, err)
	}
	if len(members) == 0 {
		log.Printf("[INFO] no members for event %d, nothing to schedule", eventID)
		return res, nil
	}

	for _, m := range members {
		if strings.TrimSpace(m.Email) == "" {
			res.SkippedNoEmail++
			continue
		}
		dup, err := p.Store.NotificationExists(ctx, eventID, m.UserID, res.SendAt, enums.NotificationStatusPending)
		if err != nil {
			return res, fmt.Errorf("failed to check reminder for user %d: %w", m.UserID, err)
		}
		if dup {
			res.SkippedDuplicate++
			continue
		}

		body, err := p.Renderer.MakeReminderHTML(notify.ReminderData{Username: m.Username, EventTitle: ev.Title,
			StartTime: ev.StartTime, Venue: ev.Venue})
		if err != nil {
			return res, fmt.Errorf("failed to render reminder for user %d: %w", m.UserID, err)
		}
		_, err = p.Store.CreateNotification(ctx, store.Notification{EventID: eventID, UserID: m.UserID, SendAt: res.SendAt,
			Status: enums.NotificationStatusPending, Subject: notify.ReminderSubject(ev.Title), Body: body, CreatedAt: now})
		if err != nil {
			return res, fmt.Errorf("failed to store reminder for user %d: %w", m.UserID, err)
		}
		res.Created++
	}

	log.Printf("[INFO] scheduled reminders for event %d at %s, created=%d, skipped no email=%d, skipped duplicate=%d",
		eventID, res.SendAt.Format(time.RFC3339), res.Created, res.SkippedNoEmail, res.SkippedDuplicate)
	return res, nil
}

// List returns all reminders of an existing event
func (p *Planner) List(ctx context.Context, eventID int64) ([]store.Notification, error) {
	if _, err := p.getEvent(ctx, eventID); err != nil {
		return nil, err
	}
	res, err := p.Store.ListNotifications(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders of event %d: %w", eventID, err)
	}
	return res, nil
}

// sendTime is start minus lead, a time in the past is moved to shortly after now.
// The result is truncated to milliseconds to match stored precision, so duplicates compare equal.
func (p *Planner) sendTime(start, now time.Time) time.Time {
	lead := p.Lead
	if lead <= 0 {
		lead = DefaultLead
	}
	at := start.Add(-lead)
	if at.Before(now) {
		at = now.Add(lateDelay)
	}
	return at.UTC().Truncate(time.Millisecond)
}

func (p *Planner) getEvent(ctx context.Context, id int64) (store.Event, error) {
	ev, err := p.Store.GetEvent(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Event{}, club.NewError(club.KindNotFound, "event not found", err)
	}
	if err != nil {
		return store.Event{}, fmt.Errorf("failed to get event %d: %w", id, err)
	}
	return ev, nil
}

func (p *Planner) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}
