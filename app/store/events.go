package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Event is a club activity, ParentID is zero for top-level events
type Event struct {
	ID            int64
	Title         string
	Description   string
	StartTime     time.Time
	EndTime       time.Time // zero when not set
	Venue         string
	AIDescription string
	ParentID      int64
	CreatedAt     time.Time
}

type eventRow struct {
	ID            int64         `db:"id"`
	Title         string        `db:"title"`
	Description   string        `db:"description"`
	StartTime     int64         `db:"start_time"`
	EndTime       sql.NullInt64 `db:"end_time"`
	Venue         string        `db:"venue"`
	AIDescription string        `db:"ai_description"`
	ParentID      sql.NullInt64 `db:"parent_id"`
	CreatedAt     int64         `db:"created_at"`
}

func (r eventRow) event() Event {
	return Event{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		StartTime:     fromMillis(r.StartTime),
		EndTime:       fromNullMillis(r.EndTime),
		Venue:         r.Venue,
		AIDescription: r.AIDescription,
		ParentID:      r.ParentID.Int64,
		CreatedAt:     fromMillis(r.CreatedAt),
	}
}

const eventColumns = `id, title, description, start_time, end_time, venue, ai_description, parent_id, created_at`

var eventSortColumns = map[string]string{
	"id":        "id",
	"title":     "title",
	"startTime": "start_time",
	"endTime":   "end_time",
	"venue":     "venue",
	"createdAt": "created_at",
}

// CreateEvent inserts an event and returns it with id and creation time set
func (s *Store) CreateEvent(ctx context.Context, e Event) (Event, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	id, err := s.insertID(ctx, `INSERT INTO events (title, description, start_time, end_time, venue, ai_description, parent_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.Description, toMillis(e.StartTime), nullMillis(e.EndTime), e.Venue, e.AIDescription,
		nullID(e.ParentID), toMillis(e.CreatedAt))
	if err != nil {
		return Event{}, fmt.Errorf("failed to create event %q: %w", e.Title, err)
	}
	return s.GetEvent(ctx, id)
}

// GetEvent returns an event by id
func (s *Store) GetEvent(ctx context.Context, id int64) (Event, error) {
	var row eventRow
	if err := s.db.GetContext(ctx, &row, s.q(`SELECT `+eventColumns+` FROM events WHERE id = ?`), id); err != nil {
		return Event{}, fmt.Errorf("failed to get event %d: %w", id, notFound(err))
	}
	return row.event(), nil
}

// ListEvents returns a page of events
func (s *Store) ListEvents(ctx context.Context, page Page) (PageResult[Event], error) {
	page = page.Normalized()
	order, err := page.orderBy(eventSortColumns)
	if err != nil {
		return PageResult[Event]{}, err
	}
	total, err := s.CountEvents(ctx)
	if err != nil {
		return PageResult[Event]{}, err
	}
	var rows []eventRow
	query := `SELECT ` + eventColumns + ` FROM events ` + order + ` LIMIT ? OFFSET ?`
	if err := s.db.SelectContext(ctx, &rows, s.q(query), page.Size, page.Offset()); err != nil {
		return PageResult[Event]{}, fmt.Errorf("failed to list events: %w", err)
	}
	res := PageResult[Event]{Items: make([]Event, 0, len(rows)), Total: total, Number: page.Number, Size: page.Size}
	for _, r := range rows {
		res.Items = append(res.Items, r.event())
	}
	return res, nil
}

// UpdateEvent overwrites editable fields of an existing event, parent and ai description are kept
func (s *Store) UpdateEvent(ctx context.Context, e Event) (Event, error) {
	err := s.exec(ctx, `UPDATE events SET title = ?, description = ?, start_time = ?, end_time = ?, venue = ? WHERE id = ?`,
		e.Title, e.Description, toMillis(e.StartTime), nullMillis(e.EndTime), e.Venue, e.ID)
	if err != nil {
		return Event{}, fmt.Errorf("failed to update event %d: %w", e.ID, err)
	}
	return s.GetEvent(ctx, e.ID)
}

// DeleteEvent removes an event, children are detached
func (s *Store) DeleteEvent(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	// detach explicitly, sqlite ignores ON DELETE SET NULL when foreign keys are off
	if _, err = tx.ExecContext(ctx, s.q(`UPDATE events SET parent_id = NULL WHERE parent_id = ?`), id); err != nil {
		return fmt.Errorf("failed to detach children of event %d: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM events WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete event %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to delete event %d: %w", id, ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// EventExists checks if an event with the id exists
func (s *Store) EventExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM events WHERE id = ?`, id)
}

// Children returns direct sub-events of the parent ordered by start time
func (s *Store) Children(ctx context.Context, parentID int64) ([]Event, error) {
	var rows []eventRow
	query := `SELECT ` + eventColumns + ` FROM events WHERE parent_id = ? ORDER BY start_time ASC, id ASC`
	if err := s.db.SelectContext(ctx, &rows, s.q(query), parentID); err != nil {
		return nil, fmt.Errorf("failed to get children of event %d: %w", parentID, err)
	}
	res := make([]Event, 0, len(rows))
	for _, r := range rows {
		res = append(res, r.event())
	}
	return res, nil
}

// SetParent sets the parent of an event, zero parentID detaches it
func (s *Store) SetParent(ctx context.Context, childID, parentID int64) error {
	if err := s.exec(ctx, `UPDATE events SET parent_id = ? WHERE id = ?`, nullID(parentID), childID); err != nil {
		return fmt.Errorf("failed to set parent of event %d: %w", childID, err)
	}
	return nil
}

// SetAIDescription stores generated description of an event
func (s *Store) SetAIDescription(ctx context.Context, id int64, text string) error {
	if err := s.exec(ctx, `UPDATE events SET ai_description = ? WHERE id = ?`, text, id); err != nil {
		return fmt.Errorf("failed to set ai description of event %d: %w", id, err)
	}
	return nil
}

// CountEvents returns the number of events
func (s *Store) CountEvents(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM events`)
}
