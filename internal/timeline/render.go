package timeline

import (
	"fmt"
	"log/slog"

	"github.com/lecturecast/lecturecast/internal/bus"
	"github.com/lecturecast/lecturecast/internal/events"
	"github.com/lecturecast/lecturecast/internal/marker"
)

const failureMessage = "Timeline unavailable"

// Renderer rebuilds its Container from every MarkersFetched event.
type Renderer struct {
	bus       *bus.Bus
	container *Container
	tracker   *Tracker
}

func NewRenderer(b *bus.Bus, c *Container, t *Tracker) *Renderer {
	r := &Renderer{bus: b, container: c, tracker: t}
	bus.Subscribe(b, events.MarkersFetched, r.Render)
	bus.Subscribe(b, events.MarkersFailed, r.RenderFailure)
	return r
}

// Render clears the container and draws one element per marker. Loads older
// than the one on screen are ignored.
func (r *Renderer) Render(ev events.TimelineLoaded) error {
	if ev.Generation < r.container.generation {
		slog.Debug("timeline: ignoring stale timeline",
			"generation", ev.Generation, "current", r.container.generation)
		return nil
	}

	tl := ev.Timeline
	elements := make([]Element, 0, len(tl))
	for i, m := range tl {
		switch m.Kind {
		case marker.Chapter:
			elements = append(elements, &ChapterLabel{
				marker:  m,
				seekTo:  chapterSeekTarget(tl, i),
				onClick: r.chapterClicked,
			})
		case marker.Caption:
			elements = append(elements, &CaptionSegment{
				marker:  m,
				onClick: r.captionClicked,
			})
		default:
			return fmt.Errorf("timeline: unknown marker kind %v at %d", m.Kind, i)
		}
	}

	r.container.replace(elements, ev.Generation, ev.Language)
	if r.tracker != nil {
		r.tracker.Reset()
	}
	slog.Debug("timeline: rendered", "generation", ev.Generation, "language", ev.Language, "elements", len(elements))
	return nil
}

// RenderFailure shows the empty state for a failed load.
func (r *Renderer) RenderFailure(f events.LoadFailure) error {
	if f.Generation < r.container.generation {
		return nil
	}
	r.container.generation = f.Generation
	r.container.clear(failureMessage)
	if r.tracker != nil {
		r.tracker.Reset()
	}
	return nil
}

func (r *Renderer) captionClicked(m marker.Marker) error {
	err := bus.Publish(r.bus, events.SeekTo, m.Start)
	r.interaction(m, m.Start)
	return err
}

func (r *Renderer) chapterClicked(m marker.Marker, seekTo float64) error {
	err := bus.Publish(r.bus, events.SeekTo, seekTo)
	r.interaction(m, m.Start)
	return err
}

func (r *Renderer) interaction(m marker.Marker, value float64) {
	if err := bus.Publish(r.bus, events.Interactions, events.Interaction{
		Category: m.Kind.String(),
		Action:   "click",
		Label:    m.Title,
		Value:    value,
	}); err != nil {
		slog.Warn("timeline: interaction handlers failed", "error", err)
	}
}

// chapterSeekTarget is the start of the element after the chapter, or the
// chapter's own start when it is last.
func chapterSeekTarget(tl marker.Timeline, i int) float64 {
	if i+1 < len(tl) {
		return tl[i+1].Start
	}
	return tl[i].Start
}
