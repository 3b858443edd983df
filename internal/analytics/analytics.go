// Package analytics forwards player interactions to the analytics webhook,
// enriched with coarse viewer information.
package analytics

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lecturecast/lecturecast/internal/bus"
	"github.com/lecturecast/lecturecast/internal/events"
	"github.com/lecturecast/lecturecast/internal/geoip"
	"github.com/lecturecast/lecturecast/internal/webhook"
	"github.com/mssola/useragent"
)

const (
	EventInteraction = "player.interaction"
	dispatchTimeout  = 30 * time.Second
)

type Dispatcher interface {
	Dispatch(ctx context.Context, event webhook.Event) error
}

type Locator interface {
	Lookup(ip string) geoip.Location
}

// Viewer is what the HTTP layer knows about the person behind a session.
type Viewer struct {
	IP        string
	UserAgent string
}

// Profile is the enrichment attached to every event of a session.
type Profile struct {
	ViewerHash     string `json:"viewerHash"`
	Browser        string `json:"browser,omitempty"`
	BrowserVersion string `json:"browserVersion,omitempty"`
	OS             string `json:"os,omitempty"`
	Mobile         bool   `json:"mobile"`
	Bot            bool   `json:"bot"`
	geoip.Location
}

type Reporter struct {
	dispatcher Dispatcher
	locator    Locator
	now        func() time.Time
	wg         sync.WaitGroup
}

// New returns a Reporter. A nil dispatcher only logs interactions.
func New(d Dispatcher, l Locator) *Reporter {
	return &Reporter{dispatcher: d, locator: l, now: time.Now}
}

// Attach subscribes the reporter to the interaction and language channels of
// one session bus.
func (r *Reporter) Attach(b *bus.Bus, sessionID, episodeID string, viewer Viewer) {
	profile := r.Profile(viewer)
	bus.Subscribe(b, events.Interactions, func(in events.Interaction) error {
		r.send(sessionID, episodeID, profile, in)
		return nil
	})
	bus.Subscribe(b, events.LanguageChanged, func(lang string) error {
		r.send(sessionID, episodeID, profile, events.Interaction{
			Category: "language",
			Action:   "change",
			Label:    lang,
		})
		return nil
	})
}

func (r *Reporter) Profile(v Viewer) Profile {
	p := Profile{ViewerHash: viewerHash(v.IP, v.UserAgent)}
	if v.UserAgent != "" {
		ua := useragent.New(v.UserAgent)
		p.Browser, p.BrowserVersion = ua.Browser()
		p.OS = ua.OS()
		p.Mobile = ua.Mobile()
		p.Bot = ua.Bot()
	}
	if r.locator != nil {
		p.Location = r.locator.Lookup(v.IP)
	}
	return p
}

// Wait blocks until every in-flight dispatch has finished.
func (r *Reporter) Wait() {
	r.wg.Wait()
}

func (r *Reporter) send(sessionID, episodeID string, profile Profile, in events.Interaction) {
	event := webhook.Event{
		Name:      EventInteraction,
		Timestamp: r.now().UTC(),
		Data: map[string]any{
			"sessionId": sessionID,
			"episodeId": episodeID,
			"category":  in.Category,
			"action":    in.Action,
			"label":     in.Label,
			"value":     in.Value,
			"viewer":    profile,
		},
	}

	if r.dispatcher == nil {
		slog.Debug("analytics: interaction", "session", sessionID, "category", in.Category, "action", in.Action, "label", in.Label)
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if err := r.dispatcher.Dispatch(ctx, event); err != nil {
			slog.Error("analytics: dispatch failed", "session", sessionID, "event", event.Name, "error", err)
		}
	}()
}

func viewerHash(ip, userAgent string) string {
	h := sha256.Sum256([]byte(ip + "|" + userAgent))
	return fmt.Sprintf("%x", h[:8])
}
