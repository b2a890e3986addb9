package club

import (
	"context"
	"strings"
	"time"

	"github.com/MusClub-NSU/MusClub-manager/app/store"
)

// EventInput is the data to create an event, zero EndTime means no end
type EventInput struct {
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	Venue       string
}

// EventPatch is a partial event update, nil fields are kept
type EventPatch struct {
	Title       *string
	Description *string
	StartTime   *time.Time
	EndTime     *time.Time
	Venue       *string
}

func (in *EventInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Venue = strings.TrimSpace(in.Venue)
}

func (in EventInput) validate() error {
	if err := required("title", in.Title, maxTitleLen); err != nil {
		return err
	}
	if err := limited("description", in.Description, maxDescriptionLen); err != nil {
		return err
	}
	if err := limited("venue", in.Venue, maxVenueLen); err != nil {
		return err
	}
	if in.StartTime.IsZero() {
		return validationf("start time is required")
	}
	return nil
}

// checkTimes enforces time rules, start is checked against now only when it was set by the caller
func (s *Service) checkTimes(start, end time.Time, startChanged bool) error {
	if startChanged && start.Before(s.now()) {
		return validationf("start time must be in the future")
	}
	if !end.IsZero() && end.Before(start) {
		return validationf("end time must be greater than or equal to start time")
	}
	return nil
}

// CreateEvent validates input and stores a new top-level event
func (s *Service) CreateEvent(ctx context.Context, in EventInput) (store.Event, error) {
	return s.createEvent(ctx, in, 0)
}

func (s *Service) createEvent(ctx context.Context, in EventInput, parentID int64) (store.Event, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return store.Event{}, err
	}
	if err := s.checkTimes(in.StartTime, in.EndTime, true); err != nil {
		return store.Event{}, err
	}
	ev, err := s.store.CreateEvent(ctx, store.Event{
		Title:       in.Title,
		Description: in.Description,
		StartTime:   in.StartTime.UTC(),
		EndTime:     utcOrZero(in.EndTime),
		Venue:       in.Venue,
		ParentID:    parentID,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return store.Event{}, translate("event", err)
	}
	return ev, nil
}

// GetEvent returns an event by id
func (s *Service) GetEvent(ctx context.Context, id int64) (store.Event, error) {
	ev, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return store.Event{}, translate("event", err)
	}
	return ev, nil
}

// ListEvents returns a page of events
func (s *Service) ListEvents(ctx context.Context, page store.Page) (store.PageResult[store.Event], error) {
	res, err := s.store.ListEvents(ctx, page)
	if err != nil {
		return store.PageResult[store.Event]{}, translate("events", err)
	}
	return res, nil
}

// UpdateEvent applies a partial update. Time rules apply to the resulting start and end
// when the patch changes them.
func (s *Service) UpdateEvent(ctx context.Context, id int64, patch EventPatch) (store.Event, error) {
	cur, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return store.Event{}, translate("event", err)
	}
	in := EventInput{Title: cur.Title, Description: cur.Description, StartTime: cur.StartTime, EndTime: cur.EndTime,
		Venue: cur.Venue}
	if patch.Title != nil {
		in.Title = *patch.Title
	}
	if patch.Description != nil {
		in.Description = *patch.Description
	}
	if patch.StartTime != nil {
		in.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		in.EndTime = *patch.EndTime
	}
	if patch.Venue != nil {
		in.Venue = *patch.Venue
	}
	in.normalize()
	if err := in.validate(); err != nil {
		return store.Event{}, err
	}
	if patch.StartTime != nil || patch.EndTime != nil {
		if err := s.checkTimes(in.StartTime, in.EndTime, patch.StartTime != nil); err != nil {
			return store.Event{}, err
		}
	}

	ev, err := s.store.UpdateEvent(ctx, store.Event{ID: id, Title: in.Title, Description: in.Description,
		StartTime: in.StartTime.UTC(), EndTime: utcOrZero(in.EndTime), Venue: in.Venue})
	if err != nil {
		return store.Event{}, translate("event", err)
	}
	return ev, nil
}

// DeleteEvent removes an event, sub-events are detached
func (s *Service) DeleteEvent(ctx context.Context, id int64) error {
	return translate("event", s.store.DeleteEvent(ctx, id))
}

func utcOrZero(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
