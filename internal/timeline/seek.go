package timeline

import (
	"log/slog"
	"math"

	"github.com/lecturecast/lecturecast/internal/bus"
	"github.com/lecturecast/lecturecast/internal/events"
)

// SeekController turns pointer activity on the container into seek and
// preview requests.
type SeekController struct {
	bus       *bus.Bus
	container *Container
}

// NewSeekController installs itself as the container's background click
// handler.
func NewSeekController(b *bus.Bus, c *Container) *SeekController {
	s := &SeekController{bus: b, container: c}
	c.onBackground = s.ClickBackground
	return s
}

// ClickBackground seeks to the click position as a fraction of the viewport
// width, rounded to two decimals.
func (s *SeekController) ClickBackground(click BackgroundClick) error {
	if click.ViewportWidth <= 0 {
		slog.Debug("timeline: ignoring click without viewport width")
		return nil
	}
	percent := round(click.PageX/click.ViewportWidth, 2)
	return bus.Publish(s.bus, events.SeekToPercent, percent)
}

// Hover publishes a preview at the pointer position relative to the
// container, or clears the preview while the pointer is over a chapter label.
func (s *SeekController) Hover(p events.Pointer) error {
	if p.OverChapter {
		return s.Leave()
	}
	if p.ContainerWidth <= 0 {
		return nil
	}
	fraction := round((p.PageX-p.ContainerLeft)/p.ContainerWidth, 3)
	return bus.Publish(s.bus, events.TimelineHover, events.Hover{Fraction: fraction, Pointer: p})
}

func (s *SeekController) Leave() error {
	return bus.Publish(s.bus, events.TimelineLeave, struct{}{})
}

func round(v float64, places int) float64 {
	m := math.Pow(10, float64(places))
	return math.Round(v*m) / m
}
