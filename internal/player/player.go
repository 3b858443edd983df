// Package player runs one viewer's timeline session: the bus, the rendered
// container and the components that keep it in step with playback.
package player

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"sync"
	"time"

	"github.com/lecturecast/lecturecast/internal/bus"
	"github.com/lecturecast/lecturecast/internal/episode"
	"github.com/lecturecast/lecturecast/internal/events"
	"github.com/lecturecast/lecturecast/internal/languages"
	"github.com/lecturecast/lecturecast/internal/loader"
	"github.com/lecturecast/lecturecast/internal/timeline"
)

var ErrNoElement = errors.New("player: no timeline element at index")

// Snapshot is the session state returned to the client after every call.
type Snapshot struct {
	SessionID string        `json:"sessionId"`
	EpisodeID string        `json:"episodeId"`
	Language  string        `json:"language"`
	Languages []string      `json:"languages"`
	Timeline  timeline.View `json:"timeline"`
}

// Player serializes every entry point behind one mutex, so bus dispatch
// never runs concurrently within a session. Fetches run outside the lock.
type Player struct {
	id      string
	episode *episode.Episode

	mu        sync.Mutex
	language  string
	lastSeen  time.Time
	now       func() time.Time
	bus       *bus.Bus
	container *timeline.Container
	tracker   *timeline.Tracker
	seek      *timeline.SeekController
	loader    *loader.Loader
	outbox    *outbox
}

func New(id string, ep *episode.Episode, f loader.Fetcher) *Player {
	b := bus.New()
	c := timeline.NewContainer()
	t := timeline.NewTracker(b, c)
	timeline.NewRenderer(b, c, t)
	timeline.NewProgress(b, c)

	p := &Player{
		id:        id,
		episode:   ep,
		language:  episode.DefaultLanguage,
		now:       time.Now,
		bus:       b,
		container: c,
		tracker:   t,
		seek:      timeline.NewSeekController(b, c),
		loader:    loader.New(b, f),
		outbox:    newOutbox(b),
	}
	p.lastSeen = p.now()
	return p
}

func (p *Player) ID() string { return p.id }

func (p *Player) Episode() *episode.Episode { return p.episode }

// Bus exposes the session bus to collaborators such as analytics.
func (p *Player) Bus() *bus.Bus { return p.bus }

// LastSeen is the time of the most recent entry point call.
func (p *Player) LastSeen() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSeen
}

// Load fetches the timeline for language and renders it. A load overtaken by
// a newer one returns loader.ErrStale and leaves the newer timeline in place.
func (p *Player) Load(ctx context.Context, language string) error {
	lang := languages.Normalize(language)
	if lang == "" {
		lang = episode.DefaultLanguage
	}

	p.mu.Lock()
	p.touch()
	req := loader.Request{
		Language:    lang,
		ChaptersURL: p.episode.ResourceURL(episode.Chapters, lang),
		CaptionsURL: p.episode.ResourceURL(episode.Captions, lang),
	}
	p.mu.Unlock()

	res := p.loader.Fetch(ctx, req)

	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.loader.Publish(res)
	if !errors.Is(err, loader.ErrStale) {
		p.language = res.Language
	}
	return err
}

// ChangeLanguage announces the switch on the bus and loads the new
// timeline.
func (p *Player) ChangeLanguage(ctx context.Context, language string) error {
	p.mu.Lock()
	err := bus.Publish(p.bus, events.LanguageChanged, languages.Normalize(language))
	p.mu.Unlock()
	if err != nil {
		slog.Warn("player: language change handlers failed", "session", p.id, "error", err)
	}
	return p.Load(ctx, language)
}

func (p *Player) Tick(now, duration float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.touch()
	return bus.Publish(p.bus, events.VideoTick, events.Tick{Time: now, Duration: duration})
}

// ClickElement clicks the rendered element at index i.
func (p *Player) ClickElement(i int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.touch()
	if _, ok := p.container.Element(i); !ok {
		return fmt.Errorf("%w %d", ErrNoElement, i)
	}
	return p.container.Click(i, timeline.BackgroundClick{})
}

// ClickBackground clicks the container outside any element.
func (p *Player) ClickBackground(pageX, viewportWidth float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.touch()
	return p.container.Click(-1, timeline.BackgroundClick{PageX: pageX, ViewportWidth: viewportWidth})
}

func (p *Player) Hover(pointer events.Pointer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.touch()
	return p.seek.Hover(pointer)
}

func (p *Player) Leave() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.touch()
	return p.seek.Leave()
}

func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		SessionID: p.id,
		EpisodeID: p.episode.ID,
		Language:  p.language,
		Languages: p.episode.Languages(),
		Timeline:  p.container.View(p.tracker.Active()),
	}
}

// HTML renders the current timeline markup.
func (p *Player) HTML() (template.HTML, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.container.HTML(p.tracker.Active())
}

// Drain returns the commands emitted since the previous drain.
func (p *Player) Drain() []Command {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outbox.drain()
}

func (p *Player) touch() {
	p.lastSeen = p.now()
}
