package store

import (
	"context"
	"fmt"
	"time"
)

// Member is a user assigned to an event under a role
type Member struct {
	EventID  int64
	UserID   int64
	Username string
	Email    string
	Role     string
	AddedAt  time.Time
}

type memberRow struct {
	EventID  int64  `db:"event_id"`
	UserID   int64  `db:"user_id"`
	Username string `db:"username"`
	Email    string `db:"email"`
	Role     string `db:"role"`
	AddedAt  int64  `db:"added_at"`
}

func (r memberRow) member() Member {
	return Member{EventID: r.EventID, UserID: r.UserID, Username: r.Username, Email: r.Email, Role: r.Role,
		AddedAt: fromMillis(r.AddedAt)}
}

const memberSelect = `SELECT m.event_id, m.user_id, u.username, u.email, m.role, m.added_at
	FROM event_members m JOIN users u ON u.id = m.user_id`

// ListMembers returns members of the event in the order they were added
func (s *Store) ListMembers(ctx context.Context, eventID int64) ([]Member, error) {
	var rows []memberRow
	query := memberSelect + ` WHERE m.event_id = ? ORDER BY m.added_at ASC, m.user_id ASC`
	if err := s.db.SelectContext(ctx, &rows, s.q(query), eventID); err != nil {
		return nil, fmt.Errorf("failed to list members of event %d: %w", eventID, err)
	}
	res := make([]Member, 0, len(rows))
	for _, r := range rows {
		res = append(res, r.member())
	}
	return res, nil
}

// GetMember returns a single membership
func (s *Store) GetMember(ctx context.Context, eventID, userID int64) (Member, error) {
	var row memberRow
	err := s.db.GetContext(ctx, &row, s.q(memberSelect+` WHERE m.event_id = ? AND m.user_id = ?`), eventID, userID)
	if err != nil {
		return Member{}, fmt.Errorf("failed to get member %d of event %d: %w", userID, eventID, notFound(err))
	}
	return row.member(), nil
}

// UpsertMember adds the user to the event or changes the role, added_at of an existing membership is kept
func (s *Store) UpsertMember(ctx context.Context, eventID, userID int64, role string, at time.Time) (Member, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO event_members (event_id, user_id, role, added_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (event_id, user_id) DO UPDATE SET role = excluded.role`), eventID, userID, role, toMillis(at))
	if err != nil {
		return Member{}, fmt.Errorf("failed to upsert member %d of event %d: %w", userID, eventID, wrapWriteErr(err))
	}
	return s.GetMember(ctx, eventID, userID)
}

// DeleteMember removes the user from the event
func (s *Store) DeleteMember(ctx context.Context, eventID, userID int64) error {
	if err := s.exec(ctx, `DELETE FROM event_members WHERE event_id = ? AND user_id = ?`, eventID, userID); err != nil {
		return fmt.Errorf("failed to delete member %d of event %d: %w", userID, eventID, err)
	}
	return nil
}
