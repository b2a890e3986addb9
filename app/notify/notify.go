// Package notify delivers reminder e-mails and renders their html bodies
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/notify"
)

// Service sends messages to a single recipient through all configured destinations
type Service struct {
	destinations []notify.Notifier
	fromEmail    string
}

// NewService makes a service for the destinations, returns nil if there are none
func NewService(fromEmail string, destinations ...notify.Notifier) *Service {
	res := &Service{fromEmail: fromEmail}
	for _, d := range destinations {
		if d != nil {
			res.destinations = append(res.destinations, d)
		}
	}
	if len(res.destinations) == 0 {
		return nil
	}
	log.Printf("[INFO] notifier created, from %q, destinations: %d", fromEmail, len(res.destinations))
	return res
}

// Send delivers the message to the recipient with the subject. Errors of all destinations are joined.
func (s *Service) Send(ctx context.Context, to, subj, text string) error {
	if strings.TrimSpace(to) == "" {
		return errors.New("empty recipient")
	}
	var errs []error
	for _, dest := range s.destinations {
		if dest.Schema() != "mailto" {
			continue
		}
		if err := dest.Send(ctx, s.mailtoDestination(to, subj), text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) String() string {
	return fmt.Sprintf("notify service, from %s, %d destinations", s.fromEmail, len(s.destinations))
}

// mailtoDestination makes "mailto:to?from=..&subject=.." url understood by go-pkgz/notify
func (s *Service) mailtoDestination(to, subj string) string {
	q := url.Values{}
	if s.fromEmail != "" {
		q.Set("from", s.fromEmail)
	}
	q.Set("subject", subj)
	return "mailto:" + to + "?" + q.Encode()
}
