package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MusClub-NSU/MusClub-manager/app/enums"
)

// Notification is a reminder for one user about one event
type Notification struct {
	ID        int64
	EventID   int64
	UserID    int64
	Email     string // recipient, filled by Due and ListNotifications
	SendAt    time.Time
	SentAt    time.Time
	Status    enums.NotificationStatus
	Subject   string
	Body      string
	CreatedAt time.Time
}

type notificationRow struct {
	ID        int64                    `db:"id"`
	EventID   int64                    `db:"event_id"`
	UserID    int64                    `db:"user_id"`
	Email     sql.NullString           `db:"email"`
	SendAt    int64                    `db:"send_at"`
	SentAt    sql.NullInt64            `db:"sent_at"`
	Status    enums.NotificationStatus `db:"status"`
	Subject   string                   `db:"subject"`
	Body      string                   `db:"body"`
	CreatedAt int64                    `db:"created_at"`
}

func (r notificationRow) notification() Notification {
	return Notification{
		ID:        r.ID,
		EventID:   r.EventID,
		UserID:    r.UserID,
		Email:     r.Email.String,
		SendAt:    fromMillis(r.SendAt),
		SentAt:    fromNullMillis(r.SentAt),
		Status:    r.Status,
		Subject:   r.Subject,
		Body:      r.Body,
		CreatedAt: fromMillis(r.CreatedAt),
	}
}

const notificationSelect = `SELECT n.id, n.event_id, n.user_id, u.email, n.send_at, n.sent_at, n.status,
	n.subject, n.body, n.created_at FROM event_notifications n LEFT JOIN users u ON u.id = n.user_id`

// CreateNotification stores a pending notification
func (s *Store) CreateNotification(ctx context.Context, n Notification) (Notification, error) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Status == (enums.NotificationStatus{}) {
		n.Status = enums.NotificationStatusPending
	}
	id, err := s.insertID(ctx, `INSERT INTO event_notifications (event_id, user_id, send_at, status, subject, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.EventID, n.UserID, toMillis(n.SendAt), n.Status, n.Subject, n.Body, toMillis(n.CreatedAt))
	if err != nil {
		return Notification{}, fmt.Errorf("failed to create notification for user %d: %w", n.UserID, err)
	}
	n.ID = id
	n.SendAt = fromMillis(toMillis(n.SendAt))
	n.CreatedAt = fromMillis(toMillis(n.CreatedAt))
	return n, nil
}

// NotificationExists checks for a notification with the same event, user, send time and status
func (s *Store) NotificationExists(ctx context.Context, eventID, userID int64, sendAt time.Time, status enums.NotificationStatus) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM event_notifications WHERE event_id = ? AND user_id = ? AND send_at = ? AND status = ?`,
		eventID, userID, toMillis(sendAt), status)
}

// DueNotifications returns pending notifications with send time not after now, oldest first
func (s *Store) DueNotifications(ctx context.Context, now time.Time, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	query := notificationSelect + ` WHERE n.status = ? AND n.send_at <= ? ORDER BY n.send_at ASC, n.id ASC LIMIT ?`
	return s.selectNotifications(ctx, query, enums.NotificationStatusPending, toMillis(now), limit)
}

// ListNotifications returns all notifications of the event ordered by send time
func (s *Store) ListNotifications(ctx context.Context, eventID int64) ([]Notification, error) {
	query := notificationSelect + ` WHERE n.event_id = ? ORDER BY n.send_at ASC, n.id ASC`
	return s.selectNotifications(ctx, query, eventID)
}

func (s *Store) selectNotifications(ctx context.Context, query string, args ...any) ([]Notification, error) {
	var rows []notificationRow
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("failed to select notifications: %w", err)
	}
	res := make([]Notification, 0, len(rows))
	for _, r := range rows {
		res = append(res, r.notification())
	}
	return res, nil
}

// MarkNotificationSent sets status to sent with the delivery time
func (s *Store) MarkNotificationSent(ctx context.Context, id int64, at time.Time) error {
	err := s.exec(ctx, `UPDATE event_notifications SET status = ?, sent_at = ? WHERE id = ?`,
		enums.NotificationStatusSent, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("failed to mark notification %d sent: %w", id, err)
	}
	return nil
}

// MarkNotificationFailed sets status to failed
func (s *Store) MarkNotificationFailed(ctx context.Context, id int64) error {
	if err := s.exec(ctx, `UPDATE event_notifications SET status = ? WHERE id = ?`, enums.NotificationStatusFailed, id); err != nil {
		return fmt.Errorf("failed to mark notification %d failed: %w", id, err)
	}
	return nil
}

// CountPendingNotifications returns the number of notifications waiting for delivery
func (s *Store) CountPendingNotifications(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM event_notifications WHERE status = ?`, enums.NotificationStatusPending)
}
