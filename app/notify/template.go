package notify

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
)

//go:embed templates/reminder.html.tmpl
var defaultReminderTemplate string

// placeholders for missing reminder fields
const (
	defaultUsername = "participant"
	defaultVenue    = "to be announced"
)

// ReminderData is the content of a reminder message
type ReminderData struct {
	Username   string
	EventTitle string
	StartTime  time.Time
	Venue      string
}

// Templates renders message bodies from the embedded default template or a custom file
type Templates struct {
	reminder *template.Template
	fallback *template.Template
	loc      *time.Location
}

// NewTemplates makes templates. Custom file is optional, an unreadable or invalid file
// is reported and the default template is used instead. Nil loc means UTC.
func NewTemplates(reminderFile string, loc *time.Location) *Templates {
	if loc == nil {
		loc = time.UTC
	}
	res := &Templates{fallback: template.Must(template.New("reminder").Parse(defaultReminderTemplate)), loc: loc}
	res.reminder = res.fallback
	if reminderFile == "" {
		return res
	}

	data, err := os.ReadFile(reminderFile) //nolint:gosec // file name comes from trusted config
	if err != nil {
		log.Printf("[WARN] can't read reminder template %s, using default: %v", reminderFile, err)
		return res
	}
	tmpl, err := template.New("reminder").Parse(string(data))
	if err != nil {
		log.Printf("[WARN] can't parse reminder template %s, using default: %v", reminderFile, err)
		return res
	}
	res.reminder = tmpl
	log.Printf("[DEBUG] custom reminder template loaded from %s", reminderFile)
	return res
}

// MakeReminderHTML renders reminder body, blank username and venue get placeholders
func (t *Templates) MakeReminderHTML(d ReminderData) (string, error) {
	if strings.TrimSpace(d.Username) == "" {
		d.Username = defaultUsername
	}
	if strings.TrimSpace(d.Venue) == "" {
		d.Venue = defaultVenue
	}
	d.StartTime = d.StartTime.In(t.loc)

	buf := bytes.Buffer{}
	if err := t.reminder.Execute(&buf, d); err != nil {
		if t.reminder == t.fallback {
			return "", fmt.Errorf("failed to apply reminder template: %w", err)
		}
		log.Printf("[WARN] custom reminder template failed, using default: %v", err)
		buf.Reset()
		if err := t.fallback.Execute(&buf, d); err != nil {
			return "", fmt.Errorf("failed to apply default reminder template: %w", err)
		}
	}
	return buf.String(), nil
}

// ReminderSubject makes subject line for the event reminder
func ReminderSubject(eventTitle string) string {
	return "Reminder: " + eventTitle
}
