// Package club implements the business rules for users, events, event members and sub-events.
// Services validate input, check existence and uniqueness and delegate persistence to Store.
// All errors returned to callers are *Error with a Kind, except unexpected storage failures.
package club

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MusClub-NSU/MusClub-manager/app/store"
)

// Store defines persistence used by the club services
type Store interface {
	CreateUser(ctx context.Context, u store.User) (store.User, error)
	GetUser(ctx context.Context, id int64) (store.User, error)
	GetUserByUsername(ctx context.Context, username string) (store.User, error)
	ListUsers(ctx context.Context, page store.Page) (store.PageResult[store.User], error)
	UpdateUser(ctx context.Context, u store.User) (store.User, error)
	DeleteUser(ctx context.Context, id int64) error
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	CreateEvent(ctx context.Context, e store.Event) (store.Event, error)
	GetEvent(ctx context.Context, id int64) (store.Event, error)
	ListEvents(ctx context.Context, page store.Page) (store.PageResult[store.Event], error)
	UpdateEvent(ctx context.Context, e store.Event) (store.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
	Children(ctx context.Context, parentID int64) ([]store.Event, error)
	SetParent(ctx context.Context, childID, parentID int64) error

	ListMembers(ctx context.Context, eventID int64) ([]store.Member, error)
	UpsertMember(ctx context.Context, eventID, userID int64, role string, at time.Time) (store.Member, error)
	DeleteMember(ctx context.Context, eventID, userID int64) error
}

// Service provides club operations on top of Store
type Service struct {
	store Store
	now   func() time.Time
}

// New makes a club service
func New(s Store) *Service {
	return &Service{store: s, now: func() time.Time { return time.Now().UTC() }}
}

// translate converts storage errors to domain errors, what names the missing record
func translate(what string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return notFound(what, err)
	case errors.Is(err, store.ErrInvalidSort):
		return NewError(KindValidation, "invalid sort parameter", err)
	case errors.Is(err, store.ErrConflict):
		return NewError(KindConflict, what+" already exists", err)
	}
	return fmt.Errorf("%s: %w", what, err)
}
