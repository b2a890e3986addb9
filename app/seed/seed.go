// Package seed loads demo users and events from a YAML file.
// Records are created through the club services, so seeded data passes the same validation as API input.
package seed

//go:generate go run ./internal/schema schema.json

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/MusClub-NSU/MusClub-manager/app/club"
	"github.com/MusClub-NSU/MusClub-manager/app/store"
)

// Config is the seed file
type Config struct {
	Users  []User  `yaml:"users" json:"users,omitempty" jsonschema:"description=users created when the username is not taken"`
	Events []Event `yaml:"events" json:"events,omitempty" jsonschema:"description=events created when there are no events yet"`
}

// User is a seeded user
type User struct {
	Username string `yaml:"username" json:"username" jsonschema:"required,maxLength=100"`
	Email    string `yaml:"email" json:"email" jsonschema:"required,format=email,maxLength=255"`
	Role     string `yaml:"role,omitempty" json:"role,omitempty" jsonschema:"default=MEMBER,maxLength=50"`
}

// Event is a seeded event with members and sub-events.
// Start is absolute, StartIn is relative to the load time; one of them is required.
// End is absolute, Duration counts from the start; both are optional and exclusive.
type Event struct {
	Title       string        `yaml:"title" json:"title" jsonschema:"required,maxLength=255"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty" jsonschema:"maxLength=1000"`
	Start       time.Time     `yaml:"start,omitempty" json:"start,omitempty" jsonschema:"description=start time in RFC3339"`
	StartIn     time.Duration `yaml:"start_in,omitempty" json:"start_in,omitempty" jsonschema:"description=start relative to load time as a duration like 72h"`
	End         time.Time     `yaml:"end,omitempty" json:"end,omitempty" jsonschema:"description=end time in RFC3339"`
	Duration    time.Duration `yaml:"duration,omitempty" json:"duration,omitempty" jsonschema:"description=event length as a duration like 2h30m"`
	Venue       string        `yaml:"venue,omitempty" json:"venue,omitempty" jsonschema:"maxLength=255"`
	Members     []Member      `yaml:"members,omitempty" json:"members,omitempty"`
	Children    []Event       `yaml:"children,omitempty" json:"children,omitempty"`
}

// durationPattern matches duration strings like 72h or 1h30m
const durationPattern = `^-?([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`

// JSONSchemaExtend describes durations as strings, the form yaml decodes them from
func (Event) JSONSchemaExtend(s *jsonschema.Schema) {
	for _, name := range []string{"start_in", "duration"} {
		if prop, ok := s.Properties.Get(name); ok {
			prop.Type = "string"
			prop.Pattern = durationPattern
		}
	}
}

// Member links a seeded user to an event
type Member struct {
	Username string `yaml:"username" json:"username" jsonschema:"required"`
	Role     string `yaml:"role" json:"role" jsonschema:"required,maxLength=64"`
}

// Service defines club operations used by Loader
type Service interface {
	CreateUser(ctx context.Context, in club.UserInput) (store.User, error)
	CreateEvent(ctx context.Context, in club.EventInput) (store.Event, error)
	CreateSubEvent(ctx context.Context, parentID int64, in club.EventInput) (store.Event, error)
	UpsertMember(ctx context.Context, eventID, userID int64, role string) (store.Member, error)
}

// Store defines lookups used by Loader
type Store interface {
	GetUserByUsername(ctx context.Context, username string) (store.User, error)
	CountEvents(ctx context.Context) (int, error)
}

// Result reports what was loaded
type Result struct {
	UsersCreated  int
	UsersSkipped  int
	EventsCreated int
	Members       int
}

// Loader applies seed config
type Loader struct {
	Service Service
	Store   Store
	Now     func() time.Time
}

// Parse reads and checks seed file
func Parse(file string) (*Config, error) {
	data, err := os.ReadFile(file) //nolint:gosec // seed file path is from cli
	if err != nil {
		return nil, fmt.Errorf("can't read seed file %s: %w", file, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("can't parse seed file %s: %w", file, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid seed file %s: %w", file, err)
	}
	return &cfg, nil
}

// GenerateSchema generates a JSON schema for the seed file
func GenerateSchema() *jsonschema.Schema {
	return jsonschema.Reflect(&Config{})
}

func (c *Config) validate() error {
	known := map[string]bool{}
	for i, u := range c.Users {
		if strings.TrimSpace(u.Username) == "" {
			return fmt.Errorf("user %d: username is required", i+1)
		}
		known[strings.TrimSpace(u.Username)] = true
	}
	var check func(path string, events []Event) error
	check = func(path string, events []Event) error {
		for i, e := range events {
			name := fmt.Sprintf("%sevent %d", path, i+1)
			if strings.TrimSpace(e.Title) == "" {
				return fmt.Errorf("%s: title is required", name)
			}
			if e.Start.IsZero() == (e.StartIn == 0) {
				return fmt.Errorf("%s: exactly one of start and start_in is required", name)
			}
			if e.Duration < 0 {
				return fmt.Errorf("%s: duration must not be negative", name)
			}
			if !e.End.IsZero() && e.Duration != 0 {
				return fmt.Errorf("%s: only one of end and duration is allowed", name)
			}
			for _, m := range e.Members {
				if !known[strings.TrimSpace(m.Username)] {
					return fmt.Errorf("%s: member %q is not in users", name, m.Username)
				}
			}
			if err := check(name+" > ", e.Children); err != nil {
				return err
			}
		}
		return nil
	}
	return check("", c.Events)
}

// Load creates users missing by username, then events with members and sub-events.
// Events are loaded only into an empty database, so repeated starts don't duplicate them.
func (l *Loader) Load(ctx context.Context, cfg *Config) (Result, error) {
	var res Result
	ids := make(map[string]int64, len(cfg.Users))
	for _, u := range cfg.Users {
		existing, err := l.Store.GetUserByUsername(ctx, strings.TrimSpace(u.Username))
		if err == nil {
			ids[existing.Username] = existing.ID
			res.UsersSkipped++
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return res, fmt.Errorf("can't check user %s: %w", u.Username, err)
		}
		created, err := l.Service.CreateUser(ctx, club.UserInput{Username: u.Username, Email: u.Email, Role: u.Role})
		if err != nil {
			return res, fmt.Errorf("can't create user %s: %w", u.Username, err)
		}
		ids[created.Username] = created.ID
		res.UsersCreated++
	}

	count, err := l.Store.CountEvents(ctx)
	if err != nil {
		return res, fmt.Errorf("can't count events: %w", err)
	}
	if count > 0 {
		log.Printf("[INFO] %d events already exist, skip seeding events", count)
		return res, nil
	}

	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}
	for _, e := range cfg.Events {
		if err := l.loadEvent(ctx, 0, e, ids, now, &res); err != nil {
			return res, err
		}
	}
	log.Printf("[INFO] seed loaded, users created=%d, skipped=%d, events=%d, members=%d",
		res.UsersCreated, res.UsersSkipped, res.EventsCreated, res.Members)
	return res, nil
}

func (l *Loader) loadEvent(ctx context.Context, parentID int64, e Event, ids map[string]int64, now time.Time, res *Result) error {
	start := e.Start
	if e.StartIn != 0 {
		start = now.Add(e.StartIn)
	}
	in := club.EventInput{Title: e.Title, Description: e.Description, StartTime: start, EndTime: e.End, Venue: e.Venue}
	if e.Duration > 0 {
		in.EndTime = start.Add(e.Duration)
	}

	var ev store.Event
	var err error
	if parentID == 0 {
		ev, err = l.Service.CreateEvent(ctx, in)
	} else {
		ev, err = l.Service.CreateSubEvent(ctx, parentID, in)
	}
	if err != nil {
		return fmt.Errorf("can't create event %q: %w", e.Title, err)
	}
	res.EventsCreated++

	for _, m := range e.Members {
		if _, err := l.Service.UpsertMember(ctx, ev.ID, ids[strings.TrimSpace(m.Username)], m.Role); err != nil {
			return fmt.Errorf("can't add %s to event %q: %w", m.Username, e.Title, err)
		}
		res.Members++
	}
	for _, c := range e.Children {
		if err := l.loadEvent(ctx, ev.ID, c, ids, now, res); err != nil {
			return err
		}
	}
	return nil
}
