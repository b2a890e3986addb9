package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MusClub-NSU/MusClub-manager/app/ai"
	"github.com/MusClub-NSU/MusClub-manager/app/club"
	"github.com/MusClub-NSU/MusClub-manager/app/notify"
	"github.com/MusClub-NSU/MusClub-manager/app/reminder"
	"github.com/MusClub-NSU/MusClub-manager/app/store"
)

// providerStub answers AI requests with a fixed text or error
type providerStub struct {
	text string
	err  error
}

func (p *providerStub) Generate(context.Context, string, string) (string, error) { return p.text, p.err }

type testEnv struct {
	ts       *httptest.Server
	st       *store.Store
	provider *providerStub
}

func prepTestEnv(t *testing.T, withAI bool) *testEnv {
	t.Helper()
	return prepTestEnvWithRate(t, withAI, 100)
}

func prepTestEnvWithRate(t *testing.T, withAI bool, aiRate float64) *testEnv {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "web.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	env := &testEnv{st: st, provider: &providerStub{text: "generated text"}}
	gen := &ai.Generator{Store: st}
	if withAI {
		gen.Provider = env.provider
	}
	srv, err := New(Config{
		Club:        club.New(st),
		Reminders:   &reminder.Planner{Store: st, Renderer: notify.NewTemplates("", nil)},
		AI:          gen,
		Stats:       st,
		Version:     "test",
		CORSOrigins: []string{"http://localhost:5173/"},
		AIRateLimit: aiRate,
	})
	require.NoError(t, err)
	env.ts = httptest.NewServer(srv.routes())
	t.Cleanup(env.ts.Close)
	return env
}

// do sends a request with optional JSON body and decodes the response into res if not nil
func (e *testEnv) do(t *testing.T, method, path string, body any, res any) int {
	t.Helper()
	var rdr io.Reader = http.NoBody
	if body != nil {
		switch b := body.(type) {
		case string:
			rdr = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			rdr = bytes.NewReader(data)
		}
	}
	req, err := http.NewRequest(method, e.ts.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if res != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(res))
	}
	return resp.StatusCode
}

func (e *testEnv) createUser(t *testing.T, name string) UserResponse {
	t.Helper()
	var u UserResponse
	code := e.do(t, "POST", "/api/users", map[string]string{"username": name, "email": name + "@example.com"}, &u)
	require.Equal(t, http.StatusCreated, code)
	return u
}

func (e *testEnv) createEvent(t *testing.T, title string, start time.Time) EventResponse {
	t.Helper()
	var ev EventResponse
	code := e.do(t, "POST", "/api/events", map[string]any{"title": title, "startTime": start, "venue": "Hall"}, &ev)
	require.Equal(t, http.StatusCreated, code)
	return ev
}

type errorResponse struct {
	Error string `json:"error"`
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	_, err = New(Config{Club: club.New(nil)})
	require.Error(t, err)
}

func TestServer_Users(t *testing.T) {
	env := prepTestEnv(t, false)

	alice := env.createUser(t, "alice")
	assert.Equal(t, "alice", alice.Username)
	assert.Equal(t, club.DefaultUserRole, alice.Role)
	assert.False(t, alice.CreatedAt.IsZero())

	t.Run("conflict", func(t *testing.T) {
		var e errorResponse
		code := env.do(t, "POST", "/api/users", map[string]string{"username": "alice", "email": "x@example.com"}, &e)
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, "username already in use", e.Error)
	})

	t.Run("validation", func(t *testing.T) {
		var e errorResponse
		code := env.do(t, "POST", "/api/users", map[string]string{"username": "bob", "email": "not-email"}, &e)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.NotEmpty(t, e.Error)

		code = env.do(t, "POST", "/api/users", `{"username":`, &e)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "malformed JSON", e.Error)

		code = env.do(t, "POST", "/api/users", nil, &e)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "request body is required", e.Error)
	})

	t.Run("get", func(t *testing.T) {
		var u UserResponse
		assert.Equal(t, http.StatusOK, env.do(t, "GET", fmt.Sprintf("/api/users/%d", alice.ID), nil, &u))
		assert.Equal(t, alice.Email, u.Email)

		var e errorResponse
		assert.Equal(t, http.StatusNotFound, env.do(t, "GET", "/api/users/999", nil, &e))
		assert.Equal(t, "user not found", e.Error)
		assert.Equal(t, http.StatusBadRequest, env.do(t, "GET", "/api/users/abc", nil, &e))
		assert.Equal(t, http.StatusBadRequest, env.do(t, "GET", "/api/users/-1", nil, nil))
	})

	t.Run("update keeps absent fields", func(t *testing.T) {
		var u UserResponse
		code := env.do(t, "PUT", fmt.Sprintf("/api/users/%d", alice.ID), map[string]string{"role": "ADMIN"}, &u)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ADMIN", u.Role)
		assert.Equal(t, "alice", u.Username)
		assert.Equal(t, "alice@example.com", u.Email)
	})

	t.Run("list", func(t *testing.T) {
		env.createUser(t, "bob")
		env.createUser(t, "carol")
		var page PageResponse[UserResponse]
		require.Equal(t, http.StatusOK, env.do(t, "GET", "/api/users?page=0&size=2&sort=username,desc", nil, &page))
		assert.Equal(t, 3, page.TotalElements)
		assert.Equal(t, 2, page.TotalPages)
		assert.Equal(t, 2, page.Size)
		assert.Equal(t, 0, page.Number)
		assert.True(t, page.First)
		assert.False(t, page.Last)
		assert.Equal(t, 2, page.NumberOfElements)
		require.Len(t, page.Content, 2)
		assert.Equal(t, "carol", page.Content[0].Username)
		assert.Equal(t, "bob", page.Content[1].Username)

		require.Equal(t, http.StatusOK, env.do(t, "GET", "/api/users?page=1&size=2&sort=username,desc", nil, &page))
		assert.True(t, page.Last)
		require.Len(t, page.Content, 1)
		assert.Equal(t, "alice", page.Content[0].Username)

		var e errorResponse
		assert.Equal(t, http.StatusBadRequest, env.do(t, "GET", "/api/users?sort=password", nil, &e))
		assert.Equal(t, "invalid sort parameter", e.Error)
		assert.Equal(t, http.StatusBadRequest, env.do(t, "GET", "/api/users?size=big", nil, nil))
		assert.Equal(t, http.StatusBadRequest, env.do(t, "GET", "/api/users?page=9223372036854775807&size=20", nil, &e))
		assert.Equal(t, "page parameter must not exceed 1000000", e.Error)
		assert.Equal(t, http.StatusBadRequest, env.do(t, "GET", "/api/users?page=99999999999999999999", nil, nil))
	})

	t.Run("delete", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, env.do(t, "DELETE", fmt.Sprintf("/api/users/%d", alice.ID), nil, nil))
		assert.Equal(t, http.StatusNotFound, env.do(t, "DELETE", fmt.Sprintf("/api/users/%d", alice.ID), nil, nil))
	})
}

func TestServer_Events(t *testing.T) {
	env := prepTestEnv(t, false)
	start := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)

	ev := env.createEvent(t, "Spring concert", start)
	assert.Equal(t, "Spring concert", ev.Title)
	assert.True(t, start.Equal(ev.StartTime))
	assert.True(t, ev.EndTime.IsZero())

	t.Run("validation", func(t *testing.T) {
		var e errorResponse
		code := env.do(t, "POST", "/api/events", map[string]any{"title": "Old", "startTime": time.Now().Add(-time.Hour)}, &e)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "start time must be in the future", e.Error)

		code = env.do(t, "POST", "/api/events",
			map[string]any{"title": "Rev", "startTime": start, "endTime": start.Add(-time.Hour)}, &e)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "end time must be greater than or equal to start time", e.Error)

		code = env.do(t, "POST", "/api/events", `{"title":"x","startTime":"tomorrow"}`, &e)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("update", func(t *testing.T) {
		var upd EventResponse
		code := env.do(t, "PUT", fmt.Sprintf("/api/events/%d", ev.ID),
			map[string]any{"venue": "Big hall", "endTime": start.Add(2 * time.Hour)}, &upd)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Big hall", upd.Venue)
		assert.Equal(t, "Spring concert", upd.Title)
		assert.True(t, start.Add(2*time.Hour).Equal(upd.EndTime))
	})

	t.Run("list", func(t *testing.T) {
		env.createEvent(t, "Early jam", start.Add(-time.Hour))
		var page PageResponse[EventResponse]
		require.Equal(t, http.StatusOK, env.do(t, "GET", "/api/events?sort=startTime", nil, &page))
		require.Len(t, page.Content, 2)
		assert.Equal(t, "Early jam", page.Content[0].Title)
		assert.Equal(t, store.DefaultPageSize, page.Size)
	})

	t.Run("delete", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, env.do(t, "DELETE", fmt.Sprintf("/api/events/%d", ev.ID), nil, nil))
		var e errorResponse
		assert.Equal(t, http.StatusNotFound, env.do(t, "GET", fmt.Sprintf("/api/events/%d", ev.ID), nil, &e))
		assert.Equal(t, "event not found", e.Error)
	})
}

func TestServer_MembersAndRoles(t *testing.T) {
	env := prepTestEnv(t, false)
	ev := env.createEvent(t, "Jam", time.Now().Add(72*time.Hour))
	alice, bob, carol := env.createUser(t, "alice"), env.createUser(t, "bob"), env.createUser(t, "carol")
	path := fmt.Sprintf("/api/events/%d/members", ev.ID)

	var m MemberResponse
	require.Equal(t, http.StatusOK, env.do(t, "POST", path, MemberRequest{UserID: alice.ID, Role: "Guitar"}, &m))
	assert.Equal(t, MemberResponse{EventID: ev.ID, UserID: alice.ID, Username: "alice", Email: "alice@example.com",
		Role: "Guitar", AddedAt: m.AddedAt}, m)
	require.Equal(t, http.StatusOK, env.do(t, "POST", path, MemberRequest{UserID: bob.ID, Role: "Drums"}, nil))
	require.Equal(t, http.StatusOK, env.do(t, "POST", path, MemberRequest{UserID: carol.ID, Role: "Guitar"}, nil))

	t.Run("upsert changes role", func(t *testing.T) {
		require.Equal(t, http.StatusOK, env.do(t, "POST", path, MemberRequest{UserID: bob.ID, Role: "Bass"}, &m))
		assert.Equal(t, "Bass", m.Role)
		var list []MemberResponse
		require.Equal(t, http.StatusOK, env.do(t, "GET", path, nil, &list))
		assert.Len(t, list, 3)
	})

	t.Run("roles", func(t *testing.T) {
		var groups []RoleGroupResponse
		require.Equal(t, http.StatusOK, env.do(t, "GET", fmt.Sprintf("/api/events/%d/roles", ev.ID), nil, &groups))
		require.Len(t, groups, 2)
		assert.Equal(t, "Guitar", groups[0].Role)
		require.Len(t, groups[0].Members, 2)
		assert.Equal(t, "alice", groups[0].Members[0].Username)
		assert.Equal(t, "carol", groups[0].Members[1].Username)
		assert.Equal(t, "Bass", groups[1].Role)
		assert.False(t, groups[1].Pending)
	})

	t.Run("pending roles", func(t *testing.T) {
		var groups []RoleGroupResponse
		url := fmt.Sprintf("/api/events/%d/roles?role=Vocals&role=Guitar&role=%%20", ev.ID)
		require.Equal(t, http.StatusOK, env.do(t, "GET", url, nil, &groups))
		require.Len(t, groups, 3)
		assert.Equal(t, "Vocals", groups[2].Role)
		assert.True(t, groups[2].Pending)
		assert.Empty(t, groups[2].Members)
		assert.False(t, groups[0].Pending)
	})

	t.Run("errors", func(t *testing.T) {
		var e errorResponse
		assert.Equal(t, http.StatusBadRequest, env.do(t, "POST", path, MemberRequest{Role: "x"}, &e))
		assert.Equal(t, "userId is required", e.Error)
		assert.Equal(t, http.StatusNotFound, env.do(t, "POST", path, MemberRequest{UserID: 999, Role: "x"}, nil))
		assert.Equal(t, http.StatusBadRequest, env.do(t, "POST", path, MemberRequest{UserID: alice.ID, Role: " "}, nil))
		assert.Equal(t, http.StatusNotFound, env.do(t, "GET", "/api/events/999/members", nil, nil))
	})

	t.Run("remove", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, env.do(t, "DELETE", fmt.Sprintf("%s/%d", path, carol.ID), nil, nil))
		var e errorResponse
		assert.Equal(t, http.StatusNotFound, env.do(t, "DELETE", fmt.Sprintf("%s/%d", path, carol.ID), nil, &e))
		assert.Equal(t, "member not found", e.Error)
	})
}

func TestServer_SubEvents(t *testing.T) {
	env := prepTestEnv(t, false)
	start := time.Now().Add(72 * time.Hour)
	fest := env.createEvent(t, "Festival", start)
	stage := env.createEvent(t, "Stage", start.Add(time.Hour))

	var child EventResponse
	code := env.do(t, "POST", fmt.Sprintf("/api/events/%d/children", fest.ID),
		map[string]any{"title": "Opening", "startTime": start}, &child)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, fest.ID, child.ParentID)

	require.Equal(t, http.StatusNoContent,
		env.do(t, "PUT", fmt.Sprintf("/api/events/%d/children/%d", fest.ID, stage.ID), nil, nil))

	t.Run("cycle", func(t *testing.T) {
		var e errorResponse
		code := env.do(t, "PUT", fmt.Sprintf("/api/events/%d/children/%d", stage.ID, fest.ID), nil, &e)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "cycle detected", e.Error)
	})

	t.Run("tree", func(t *testing.T) {
		var tree TreeNodeResponse
		require.Equal(t, http.StatusOK, env.do(t, "GET", fmt.Sprintf("/api/events/%d/tree", fest.ID), nil, &tree))
		assert.Equal(t, "Festival", tree.Title)
		require.Len(t, tree.Children, 2)
		assert.Equal(t, "Opening", tree.Children[0].Title)
		assert.Equal(t, "Stage", tree.Children[1].Title)
		assert.NotNil(t, tree.Children[0].Children)

		require.Equal(t, http.StatusOK, env.do(t, "GET", fmt.Sprintf("/api/events/%d/tree?depth=1", fest.ID), nil, &tree))
		assert.Empty(t, tree.Children)
		assert.Equal(t, http.StatusBadRequest, env.do(t, "GET", fmt.Sprintf("/api/events/%d/tree?depth=x", fest.ID), nil, nil))
	})

	t.Run("detach", func(t *testing.T) {
		path := fmt.Sprintf("/api/events/%d/children/%d", fest.ID, stage.ID)
		assert.Equal(t, http.StatusNoContent, env.do(t, "DELETE", path, nil, nil))
		var e errorResponse
		assert.Equal(t, http.StatusBadRequest, env.do(t, "DELETE", path, nil, &e))
		assert.Equal(t, "not a direct child", e.Error)
		assert.Equal(t, http.StatusBadRequest, env.do(t, "DELETE", fmt.Sprintf("/api/events/%d/children/x", fest.ID), nil, nil))
	})
}

func TestServer_Notifications(t *testing.T) {
	env := prepTestEnv(t, false)
	ev := env.createEvent(t, "Concert", time.Now().Add(72*time.Hour))
	alice := env.createUser(t, "alice")
	path := fmt.Sprintf("/api/events/%d/members", ev.ID)
	require.Equal(t, http.StatusOK, env.do(t, "POST", path, MemberRequest{UserID: alice.ID, Role: "Vocals"}, nil))

	var sum ScheduleResponse
	notifyPath := fmt.Sprintf("/api/events/%d/notifications", ev.ID)
	require.Equal(t, http.StatusOK, env.do(t, "POST", notifyPath, nil, &sum))
	assert.Equal(t, 1, sum.Created)
	assert.Equal(t, ev.ID, sum.EventID)
	assert.WithinDuration(t, ev.StartTime.Add(-reminder.DefaultLead), sum.SendAt, time.Second)

	require.Equal(t, http.StatusOK, env.do(t, "POST", notifyPath, nil, &sum))
	assert.Equal(t, 0, sum.Created)
	assert.Equal(t, 1, sum.SkippedDuplicate)

	var list []NotificationResponse
	require.Equal(t, http.StatusOK, env.do(t, "GET", notifyPath, nil, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "pending", list[0].Status.String())
	assert.Equal(t, "alice@example.com", list[0].Email)
	assert.Equal(t, "Reminder: Concert", list[0].Subject)

	assert.Equal(t, http.StatusNotFound, env.do(t, "POST", "/api/events/999/notifications", nil, nil))
	assert.Equal(t, http.StatusNotFound, env.do(t, "GET", "/api/events/999/notifications", nil, nil))
}

func TestServer_AI(t *testing.T) {
	env := prepTestEnv(t, true)
	ev := env.createEvent(t, "Concert", time.Now().Add(72*time.Hour))

	t.Run("poster", func(t *testing.T) {
		var res map[string]string
		path := fmt.Sprintf("/api/events/%d/ai/poster?save=true", ev.ID)
		require.Equal(t, http.StatusOK, env.do(t, "POST", path, nil, &res))
		assert.Equal(t, "generated text", res["description"])
		var got EventResponse
		require.Equal(t, http.StatusOK, env.do(t, "GET", fmt.Sprintf("/api/events/%d", ev.ID), nil, &got))
		assert.Equal(t, "generated text", got.AIDescription)

		assert.Equal(t, http.StatusBadRequest,
			env.do(t, "POST", fmt.Sprintf("/api/events/%d/ai/poster?save=maybe", ev.ID), nil, nil))
		assert.Equal(t, http.StatusNotFound, env.do(t, "POST", "/api/events/999/ai/poster", nil, nil))
	})

	t.Run("social post", func(t *testing.T) {
		var post ai.SocialPost
		path := fmt.Sprintf("/api/events/%d/ai/social-post", ev.ID)
		require.Equal(t, http.StatusOK, env.do(t, "POST", path, SocialPostRequest{Platform: "X", Tone: "enthusiastic"}, &post))
		assert.Equal(t, ai.SocialPost{Content: "generated text", Platform: "twitter", Tone: "enthusiastic"}, post)

		require.Equal(t, http.StatusOK, env.do(t, "POST", path, nil, &post))
		assert.Equal(t, "general", post.Platform)
		assert.Equal(t, "casual", post.Tone)

		assert.Equal(t, http.StatusBadRequest, env.do(t, "POST", path, `{"platform":`, nil))
	})

	t.Run("provider errors", func(t *testing.T) {
		env.provider.err = &ai.StatusError{Code: http.StatusPaymentRequired}
		var e errorResponse
		path := fmt.Sprintf("/api/events/%d/ai/poster", ev.ID)
		assert.Equal(t, http.StatusBadGateway, env.do(t, "POST", path, nil, &e))
		assert.Contains(t, e.Error, "Insufficient Balance")

		env.provider.err = &ai.StatusError{Code: http.StatusServiceUnavailable}
		assert.Equal(t, http.StatusServiceUnavailable, env.do(t, "POST", path, nil, &e))
		assert.Equal(t, "AI provider temporarily unavailable, please try again later", e.Error)
	})
}

func TestServer_AIRateLimit(t *testing.T) {
	env := prepTestEnvWithRate(t, true, 0.01)
	ev := env.createEvent(t, "Concert", time.Now().Add(72*time.Hour))
	path := fmt.Sprintf("/api/events/%d/ai/poster", ev.ID)

	require.Equal(t, http.StatusOK, env.do(t, "POST", path, nil, nil))

	resp, err := http.Post(env.ts.URL+path, "application/json", http.NoBody)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"too many requests"}`, string(body))

	t.Run("other endpoints are not limited", func(t *testing.T) {
		for range 5 {
			assert.Equal(t, http.StatusOK, env.do(t, "GET", fmt.Sprintf("/api/events/%d", ev.ID), nil, nil))
		}
	})
}

func TestServer_AINotConfigured(t *testing.T) {
	env := prepTestEnv(t, false)
	ev := env.createEvent(t, "Concert", time.Now().Add(72*time.Hour))
	var e errorResponse
	code := env.do(t, "POST", fmt.Sprintf("/api/events/%d/ai/social-post", ev.ID), SocialPostRequest{}, &e)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "AI provider is not configured", e.Error)
}

func TestServer_Status(t *testing.T) {
	env := prepTestEnv(t, false)
	env.createUser(t, "alice")
	env.createEvent(t, "Concert", time.Now().Add(72*time.Hour))

	var st StatusResponse
	require.Equal(t, http.StatusOK, env.do(t, "GET", "/api/v1/status", nil, &st))
	assert.Equal(t, "test", st.Version)
	assert.Equal(t, store.TypeSQLite, st.Database)
	assert.True(t, st.DatabaseOK)
	assert.Equal(t, 1, st.Users)
	assert.Equal(t, 1, st.Events)
	assert.Equal(t, 0, st.PendingNotifications)
	assert.False(t, st.Timestamp.IsZero())
}

func TestServer_Middleware(t *testing.T) {
	env := prepTestEnv(t, false)

	t.Run("ping", func(t *testing.T) {
		resp, err := http.Get(env.ts.URL + "/ping")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "pong", string(body))
		assert.Equal(t, "musclub", resp.Header.Get("App-Name"))
	})

	t.Run("cors preflight", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, env.ts.URL+"/api/users", http.NoBody)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", "POST")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "DELETE")
		assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	})

	t.Run("cors unknown origin", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/api/users", http.NoBody)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://evil.example.com")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Contains(t, resp.Header.Get("Cache-Control"), "no-cache")
	})

	t.Run("size limit", func(t *testing.T) {
		big := `{"username":"` + strings.Repeat("a", 70*1024) + `"}`
		code := env.do(t, "POST", "/api/users", big, nil)
		assert.Equal(t, http.StatusRequestEntityTooLarge, code)
	})
}

func TestServer_CORSWildcard(t *testing.T) {
	srv := &Server{corsOrigins: []string{"*", "http://localhost:5173"}}
	h := srv.cors(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

	tbl := []struct {
		origin, allowOrigin, credentials string
	}{
		{"http://any.example.com", "*", ""},
		{"http://localhost:5173", "http://localhost:5173", "true"},
		{"", "", ""},
	}
	for _, tt := range tbl {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users", http.NoBody)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.allowOrigin, rr.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.credentials, rr.Header().Get("Access-Control-Allow-Credentials"))
		})
	}
}

func TestServer_WriteErrorHidesInternal(t *testing.T) {
	srv := &Server{}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/users", http.NoBody)
	srv.writeError(rr, req, fmt.Errorf("db is on fire"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rr.Body.String())
}
