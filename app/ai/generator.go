package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/MusClub-NSU/MusClub-manager/app/club"
	"github.com/MusClub-NSU/MusClub-manager/app/store"
)

// Store defines persistence used by Generator
type Store interface {
	GetEvent(ctx context.Context, id int64) (store.Event, error)
	SetAIDescription(ctx context.Context, id int64, text string) error
}

// Provider generates text from a system and a user prompt
type Provider interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// SocialPost is a generated social media post
type SocialPost struct {
	Content  string `json:"content"`
	Platform string `json:"platform"`
	Tone     string `json:"tone"`
}

// Generator makes poster descriptions and social posts for events.
// Nil Provider means AI is not configured, every call fails as unavailable.
type Generator struct {
	Store    Store
	Provider Provider
	Location *time.Location // event times are shown in this zone, UTC if nil
}

// Poster generates a poster description, stores it as the event AI description if save is set
func (g *Generator) Poster(ctx context.Context, eventID int64, save bool) (string, error) {
	ev, err := g.event(ctx, eventID)
	if err != nil {
		return "", err
	}
	text, err := g.Provider.Generate(ctx, posterSystemPrompt, posterUserPrompt(ev))
	if err != nil {
		return "", providerError(err, "poster description", eventID)
	}
	if save {
		if err := g.Store.SetAIDescription(ctx, eventID, text); err != nil {
			return "", fmt.Errorf("failed to save AI description of event %d: %w", eventID, err)
		}
		log.Printf("[INFO] AI description saved for event %d", eventID)
	}
	return text, nil
}

// Social generates a social media post for the platform in the given tone.
// Unknown platforms get general guidelines, unknown tones are written as casual.
func (g *Generator) Social(ctx context.Context, eventID int64, platform, tone string) (SocialPost, error) {
	ev, err := g.event(ctx, eventID)
	if err != nil {
		return SocialPost{}, err
	}
	platform, tone = NormalizePlatform(platform), NormalizeTone(tone)
	text, err := g.Provider.Generate(ctx, socialSystem(platform, tone), socialUserPrompt(ev))
	if err != nil {
		return SocialPost{}, providerError(err, "social media post", eventID)
	}
	return SocialPost{Content: text, Platform: platform, Tone: tone}, nil
}

// event loads the event with times in the generator zone
func (g *Generator) event(ctx context.Context, id int64) (store.Event, error) {
	if g.Provider == nil {
		return store.Event{}, club.NewError(club.KindUnavailable, "AI provider is not configured", nil)
	}
	ev, err := g.Store.GetEvent(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Event{}, club.NewError(club.KindNotFound, "event not found", err)
	}
	if err != nil {
		return store.Event{}, fmt.Errorf("failed to get event %d: %w", id, err)
	}
	loc := g.Location
	if loc == nil {
		loc = time.UTC
	}
	if !ev.StartTime.IsZero() {
		ev.StartTime = ev.StartTime.In(loc)
	}
	if !ev.EndTime.IsZero() {
		ev.EndTime = ev.EndTime.In(loc)
	}
	return ev, nil
}

// providerError maps provider failures to client errors, payment failure is reported as upstream error
func providerError(err error, what string, eventID int64) error {
	var se *StatusError
	if errors.As(err, &se) {
		log.Printf("[ERROR] AI provider failed on %s for event %d, status=%d, body=%s", what, eventID, se.Code, se.Body)
		switch {
		case se.Code == http.StatusPaymentRequired:
			return club.NewError(club.KindUpstream,
				"AI provider returned payment error (Insufficient Balance). Please contact administrator.", err)
		case se.Code >= 400 && se.Code < 500:
			return club.NewError(club.KindUnavailable, fmt.Sprintf("Error calling AI provider: %d", se.Code), err)
		default:
			return club.NewError(club.KindUnavailable, "AI provider temporarily unavailable, please try again later", err)
		}
	}
	log.Printf("[ERROR] failed to generate %s for event %d, %v", what, eventID, err)
	return club.NewError(club.KindUnavailable, fmt.Sprintf("Failed to generate %s, please try again later", what), err)
}
