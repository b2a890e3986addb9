package store

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MusClub-NSU/MusClub-manager/app/enums"
)

func createTestEvent(t *testing.T, s *Store, title string) Event {
	t.Helper()
	start := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Millisecond)
	ev, err := s.CreateEvent(context.Background(), Event{Title: title, Description: "desc", StartTime: start,
		Venue: "Main hall"})
	require.NoError(t, err)
	return ev
}

func TestStore_Events(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	start := time.Date(2030, 3, 10, 19, 0, 0, 0, time.UTC)
	ev, err := s.CreateEvent(ctx, Event{Title: "Spring concert", Description: "annual", StartTime: start,
		EndTime: start.Add(2 * time.Hour), Venue: "Assembly hall"})
	require.NoError(t, err)
	assert.NotZero(t, ev.ID)
	assert.Equal(t, start, ev.StartTime)
	assert.Equal(t, start.Add(2*time.Hour), ev.EndTime)
	assert.Zero(t, ev.ParentID)

	t.Run("optional end time", func(t *testing.T) {
		e, err := s.CreateEvent(ctx, Event{Title: "open end", StartTime: start})
		require.NoError(t, err)
		assert.True(t, e.EndTime.IsZero())
		assert.Equal(t, "", e.Venue)
	})

	t.Run("update keeps parent and ai description", func(t *testing.T) {
		parent := createTestEvent(t, s, "festival")
		require.NoError(t, s.SetParent(ctx, ev.ID, parent.ID))
		require.NoError(t, s.SetAIDescription(ctx, ev.ID, "generated"))

		ev.Title = "Spring gala"
		ev.EndTime = time.Time{}
		upd, err := s.UpdateEvent(ctx, ev)
		require.NoError(t, err)
		assert.Equal(t, "Spring gala", upd.Title)
		assert.True(t, upd.EndTime.IsZero())
		assert.Equal(t, parent.ID, upd.ParentID)
		assert.Equal(t, "generated", upd.AIDescription)

		require.NoError(t, s.SetParent(ctx, ev.ID, 0))
		got, err := s.GetEvent(ctx, ev.ID)
		require.NoError(t, err)
		assert.Zero(t, got.ParentID)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := s.GetEvent(ctx, 9999)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.UpdateEvent(ctx, Event{ID: 9999, Title: "x", StartTime: start})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.SetParent(ctx, 9999, 0), ErrNotFound)
		assert.ErrorIs(t, s.SetAIDescription(ctx, 9999, "x"), ErrNotFound)
		assert.ErrorIs(t, s.DeleteEvent(ctx, 9999), ErrNotFound)
		ok, err := s.EventExists(ctx, 9999)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestStore_Children(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	parent := createTestEvent(t, s, "festival")
	base := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	late, err := s.CreateEvent(ctx, Event{Title: "late set", StartTime: base.Add(3 * time.Hour), ParentID: parent.ID})
	require.NoError(t, err)
	early, err := s.CreateEvent(ctx, Event{Title: "early set", StartTime: base, ParentID: parent.ID})
	require.NoError(t, err)

	children, err := s.Children(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, early.ID, children[0].ID)
	assert.Equal(t, late.ID, children[1].ID)

	t.Run("delete parent detaches children", func(t *testing.T) {
		require.NoError(t, s.DeleteEvent(ctx, parent.ID))
		got, err := s.GetEvent(ctx, early.ID)
		require.NoError(t, err)
		assert.Zero(t, got.ParentID)
		children, err := s.Children(ctx, parent.ID)
		require.NoError(t, err)
		assert.Empty(t, children)
	})
}

func TestStore_ListEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	for i, title := range []string{"c", "a", "b"} {
		_, err := s.CreateEvent(ctx, Event{Title: title, StartTime: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}

	res, err := s.ListEvents(ctx, Page{Size: 10, SortField: "title"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	require.Len(t, res.Items, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{res.Items[0].Title, res.Items[1].Title, res.Items[2].Title})

	res, err = s.ListEvents(ctx, Page{Size: 1, SortField: "startTime", Direction: enums.SortDirectionDesc})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "b", res.Items[0].Title)
	assert.Equal(t, 3, res.TotalPages())

	n, err := s.CountEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	t.Run("end time sorts empty values last", func(t *testing.T) {
		_, err := s.CreateEvent(ctx, Event{Title: "d", StartTime: base, EndTime: base.Add(time.Hour)})
		require.NoError(t, err)
		for _, dir := range []enums.SortDirection{enums.SortDirectionAsc, enums.SortDirectionDesc} {
			res, err := s.ListEvents(ctx, Page{Size: 10, SortField: "endTime", Direction: dir})
			require.NoError(t, err)
			require.Len(t, res.Items, 4)
			assert.Equal(t, "d", res.Items[0].Title, dir.String())
			assert.Equal(t, []string{"c", "a", "b"}, []string{res.Items[1].Title, res.Items[2].Title, res.Items[3].Title})
		}
	})

	t.Run("page far beyond the end is empty", func(t *testing.T) {
		res, err := s.ListEvents(ctx, Page{Number: math.MaxInt, Size: 20})
		require.NoError(t, err)
		assert.Empty(t, res.Items)
		assert.Equal(t, MaxPageNumber, res.Number)
	})
}
