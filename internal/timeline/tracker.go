package timeline

import (
	"github.com/lecturecast/lecturecast/internal/bus"
	"github.com/lecturecast/lecturecast/internal/events"
)

// NoActive is the tracker index before any caption has become active.
const NoActive = -1

// Tracker follows playback and keeps the index of the active caption. The
// index only moves to a newly qualifying caption; running past the last
// caption leaves it where it was.
type Tracker struct {
	bus       *bus.Bus
	container *Container
	active    int
}

func NewTracker(b *bus.Bus, c *Container) *Tracker {
	t := &Tracker{bus: b, container: c, active: NoActive}
	bus.Subscribe(b, events.VideoTick, func(tick events.Tick) error {
		return t.Tick(tick.Time)
	})
	return t
}

// Active returns the timeline index of the active caption or NoActive.
func (t *Tracker) Active() int {
	return t.active
}

func (t *Tracker) Reset() {
	t.active = NoActive
}

// Tick activates the first caption, in document order, ending after now.
func (t *Tracker) Tick(now float64) error {
	target := NoActive
	for i, el := range t.container.elements {
		seg, ok := el.(*CaptionSegment)
		if !ok {
			continue
		}
		if seg.marker.End > now {
			target = i
			break
		}
	}
	if target == NoActive || target == t.active {
		return nil
	}

	t.active = target
	return bus.Publish(t.bus, events.ActiveMarker, events.Active{
		Index:  target,
		Marker: t.container.elements[target].Marker(),
	})
}
