package reminder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MusClub-NSU/MusClub-manager/app/club"
	"github.com/MusClub-NSU/MusClub-manager/app/enums"
	"github.com/MusClub-NSU/MusClub-manager/app/notify"
	"github.com/MusClub-NSU/MusClub-manager/app/store"
)

type fixture struct {
	st    *store.Store
	event store.Event
	alice store.User
	bob   store.User
}

func prepare(t *testing.T, start time.Time) fixture {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "reminder.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	res := fixture{st: st}
	res.event, err = st.CreateEvent(ctx, store.Event{Title: "Spring concert", StartTime: start, Venue: "Hall"})
	require.NoError(t, err)
	res.alice, err = st.CreateUser(ctx, store.User{Username: "alice", Email: "alice@example.com", Role: "MEMBER"})
	require.NoError(t, err)
	res.bob, err = st.CreateUser(ctx, store.User{Username: "bob", Email: "bob@example.com", Role: "MEMBER"})
	require.NoError(t, err)
	_, err = st.UpsertMember(ctx, res.event.ID, res.alice.ID, "Guitar", time.Time{})
	require.NoError(t, err)
	_, err = st.UpsertMember(ctx, res.event.ID, res.bob.ID, "Drums", time.Time{})
	require.NoError(t, err)
	return res
}

func TestPlanner_Schedule(t *testing.T) {
	now := time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)
	f := prepare(t, now.Add(72*time.Hour))
	p := &Planner{Store: f.st, Renderer: notify.NewTemplates("", nil), Now: func() time.Time { return now }}
	ctx := context.Background()

	res, err := p.Schedule(ctx, f.event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 0, res.SkippedDuplicate)
	assert.Equal(t, now.Add(48*time.Hour), res.SendAt)

	list, err := p.List(ctx, f.event.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Reminder: Spring concert", list[0].Subject)
	assert.Contains(t, list[0].Body, "Hall")
	assert.Equal(t, enums.NotificationStatusPending, list[0].Status)

	t.Run("second run skips duplicates", func(t *testing.T) {
		res, err := p.Schedule(ctx, f.event.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Created)
		assert.Equal(t, 2, res.SkippedDuplicate)
	})

	t.Run("missing event", func(t *testing.T) {
		_, err := p.Schedule(ctx, 9999)
		assert.Equal(t, club.KindNotFound, club.KindOf(err))
		_, err = p.List(ctx, 9999)
		assert.Equal(t, club.KindNotFound, club.KindOf(err))
	})
}

func TestPlanner_ScheduleLate(t *testing.T) {
	now := time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)
	f := prepare(t, now.Add(2*time.Hour))
	p := &Planner{Store: f.st, Renderer: notify.NewTemplates("", nil), Now: func() time.Time { return now }}

	res, err := p.Schedule(context.Background(), f.event.ID)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute), res.SendAt, "send time in the past moves to now+1m")
	assert.Equal(t, 2, res.Created)
}

func TestPlanner_CustomLead(t *testing.T) {
	now := time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)
	f := prepare(t, now.Add(10*time.Hour))
	p := &Planner{Store: f.st, Renderer: notify.NewTemplates("", nil), Lead: 3 * time.Hour, Now: func() time.Time { return now }}

	res, err := p.Schedule(context.Background(), f.event.ID)
	require.NoError(t, err)
	assert.Equal(t, now.Add(7*time.Hour), res.SendAt)
}

// noEmailStore reports members without e-mail
type noEmailStore struct {
	PlannerStore
	created int
}

func (s *noEmailStore) GetEvent(_ context.Context, id int64) (store.Event, error) {
	return store.Event{ID: id, Title: "jam", StartTime: time.Now().Add(48 * time.Hour)}, nil
}

func (s *noEmailStore) ListMembers(_ context.Context, eventID int64) ([]store.Member, error) {
	return []store.Member{{EventID: eventID, UserID: 1, Username: "ghost"}, {EventID: eventID, UserID: 2, Email: " "}}, nil
}

func (s *noEmailStore) CreateNotification(_ context.Context, n store.Notification) (store.Notification, error) {
	s.created++
	return n, nil
}

func TestPlanner_SkipsNoEmail(t *testing.T) {
	st := &noEmailStore{}
	p := &Planner{Store: st, Renderer: notify.NewTemplates("", nil)}
	res, err := p.Schedule(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.SkippedNoEmail)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 0, st.created)
}

func TestPlanner_NoMembers(t *testing.T) {
	now := time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)
	f := prepare(t, now.Add(72*time.Hour))
	ctx := context.Background()
	require.NoError(t, f.st.DeleteMember(ctx, f.event.ID, f.alice.ID))
	require.NoError(t, f.st.DeleteMember(ctx, f.event.ID, f.bob.ID))

	p := &Planner{Store: f.st, Renderer: notify.NewTemplates("", nil), Now: func() time.Time { return now }}
	res, err := p.Schedule(ctx, f.event.ID)
	require.NoError(t, err)
	assert.Equal(t, Summary{EventID: f.event.ID, SendAt: now.Add(48 * time.Hour)}, res)
}
