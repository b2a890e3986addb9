// Package web implements the REST API server of the club manager
package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/MusClub-NSU/MusClub-manager/app/ai"
	"github.com/MusClub-NSU/MusClub-manager/app/club"
	"github.com/MusClub-NSU/MusClub-manager/app/reminder"
	"github.com/MusClub-NSU/MusClub-manager/app/store"
)

// Club defines club operations used by handlers
type Club interface {
	CreateUser(ctx context.Context, in club.UserInput) (store.User, error)
	GetUser(ctx context.Context, id int64) (store.User, error)
	ListUsers(ctx context.Context, page store.Page) (store.PageResult[store.User], error)
	UpdateUser(ctx context.Context, id int64, patch club.UserPatch) (store.User, error)
	DeleteUser(ctx context.Context, id int64) error

	CreateEvent(ctx context.Context, in club.EventInput) (store.Event, error)
	GetEvent(ctx context.Context, id int64) (store.Event, error)
	ListEvents(ctx context.Context, page store.Page) (store.PageResult[store.Event], error)
	UpdateEvent(ctx context.Context, id int64, patch club.EventPatch) (store.Event, error)
	DeleteEvent(ctx context.Context, id int64) error

	ListMembers(ctx context.Context, eventID int64) ([]store.Member, error)
	UpsertMember(ctx context.Context, eventID, userID int64, role string) (store.Member, error)
	RemoveMember(ctx context.Context, eventID, userID int64) error
	CreateSubEvent(ctx context.Context, parentID int64, in club.EventInput) (store.Event, error)
	AttachChild(ctx context.Context, parentID, childID int64) error
	DetachChild(ctx context.Context, parentID, childID int64) error
	Tree(ctx context.Context, eventID int64, depth int) (club.TreeNode, error)
}

// Reminders schedules and lists event reminders
type Reminders interface {
	Schedule(ctx context.Context, eventID int64) (reminder.Summary, error)
	List(ctx context.Context, eventID int64) ([]store.Notification, error)
}

// TextGenerator makes AI texts for events
type TextGenerator interface {
	Poster(ctx context.Context, eventID int64, save bool) (string, error)
	Social(ctx context.Context, eventID int64, platform, tone string) (ai.SocialPost, error)
}

// Stats provides counters for the status endpoint
type Stats interface {
	CountUsers(ctx context.Context) (int, error)
	CountEvents(ctx context.Context) (int, error)
	CountPendingNotifications(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Type() string
}

// Config holds server configuration
type Config struct {
	Club        Club
	Reminders   Reminders
	AI          TextGenerator
	Stats       Stats
	Version     string
	CORSOrigins []string // allowed client origins, "*" allows any
	AIRateLimit float64  // AI requests per second per client, 1 if not set
}

// Server is the REST API server
type Server struct {
	club        Club
	reminders   Reminders
	ai          TextGenerator
	stats       Stats
	version     string
	corsOrigins []string
	aiLimiter   *limiter.Limiter
	startedAt   time.Time
}

// New creates a new web server
func New(cfg Config) (*Server, error) {
	if cfg.Club == nil {
		return nil, fmt.Errorf("web server initialization failed: club service is required")
	}
	if cfg.Reminders == nil || cfg.AI == nil || cfg.Stats == nil {
		return nil, fmt.Errorf("web server initialization failed: reminders, AI and stats are required")
	}

	rate := cfg.AIRateLimit
	if rate <= 0 {
		rate = 1
	}
	lmt := tollbooth.NewLimiter(rate, nil)
	lmt.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr"})
	lmt.SetMessageContentType("application/json; charset=utf-8")
	lmt.SetMessage(`{"error":"too many requests"}`)

	return &Server{
		club:        cfg.Club,
		reminders:   cfg.Reminders,
		ai:          cfg.AI,
		stats:       cfg.Stats,
		version:     cfg.Version,
		corsOrigins: cfg.CORSOrigins,
		aiLimiter:   lmt,
		startedAt:   time.Now(),
	}, nil
}

// Run starts the web server, blocks until ctx is canceled
func (s *Server) Run(ctx context.Context, address string) error {
	server := &http.Server{
		Addr:              address,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second, // AI generation is slow
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown server: %v", err)
		}
	}()

	log.Printf("[INFO] starting web server on %s", address)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}

// routes returns the http.Handler with all routes configured
func (s *Server) routes() http.Handler {
	router := routegroup.New(http.NewServeMux())

	router.Use(
		rest.RealIP,
		rest.Recoverer(log.Default()),
		rest.Throttle(1000),
		rest.AppInfo("musclub", "musclub-nsu", s.version),
		rest.Ping,
		rest.Trace,
		rest.SizeLimit(64*1024), // 64KB max request size
		logger.New(logger.Log(log.Default()), logger.Prefix("[DEBUG]")).Handler,
		s.cors,
	)

	router.Mount("/api").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache)

		api.HandleFunc("POST /users", s.handleCreateUser)
		api.HandleFunc("GET /users", s.handleListUsers)
		api.HandleFunc("GET /users/{id}", s.handleGetUser)
		api.HandleFunc("PUT /users/{id}", s.handleUpdateUser)
		api.HandleFunc("DELETE /users/{id}", s.handleDeleteUser)

		api.HandleFunc("POST /events", s.handleCreateEvent)
		api.HandleFunc("GET /events", s.handleListEvents)
		api.HandleFunc("GET /events/{id}", s.handleGetEvent)
		api.HandleFunc("PUT /events/{id}", s.handleUpdateEvent)
		api.HandleFunc("DELETE /events/{id}", s.handleDeleteEvent)

		api.HandleFunc("GET /events/{id}/members", s.handleListMembers)
		api.HandleFunc("POST /events/{id}/members", s.handleUpsertMember)
		api.HandleFunc("DELETE /events/{id}/members/{userId}", s.handleRemoveMember)
		api.HandleFunc("GET /events/{id}/roles", s.handleRoles)

		api.HandleFunc("POST /events/{id}/children", s.handleCreateChild)
		api.HandleFunc("PUT /events/{id}/children/{childId}", s.handleAttachChild)
		api.HandleFunc("DELETE /events/{id}/children/{childId}", s.handleDetachChild)
		api.HandleFunc("GET /events/{id}/tree", s.handleTree)

		api.HandleFunc("POST /events/{id}/notifications", s.handleScheduleNotifications)
		api.HandleFunc("GET /events/{id}/notifications", s.handleListNotifications)

		api.With(tollbooth.HTTPMiddleware(s.aiLimiter)).HandleFunc("POST /events/{id}/ai/poster", s.handlePoster)
		api.With(tollbooth.HTTPMiddleware(s.aiLimiter)).HandleFunc("POST /events/{id}/ai/social-post", s.handleSocialPost)

		api.HandleFunc("GET /v1/status", s.handleStatus)
	})

	return router
}

// cors allows the configured client origins, preflight requests are answered directly
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		listed, wildcard := s.originAllowed(origin)
		if !listed && !wildcard {
			next.ServeHTTP(w, r)
			return
		}
		h := w.Header()
		h.Add("Vary", "Origin")
		if listed {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		} else {
			h.Set("Access-Control-Allow-Origin", "*") // no credentials with wildcard
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			h.Set("Access-Control-Max-Age", "3600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// originAllowed reports whether origin is listed explicitly and whether "*" is configured
func (s *Server) originAllowed(origin string) (listed, wildcard bool) {
	for _, o := range s.corsOrigins {
		o = strings.TrimSpace(o)
		if o == "*" {
			wildcard = true
			continue
		}
		if strings.EqualFold(strings.TrimSuffix(o, "/"), origin) {
			listed = true
		}
	}
	return listed, wildcard
}
