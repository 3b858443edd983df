package timeline

import (
	"fmt"
	"strconv"

	"github.com/lecturecast/lecturecast/internal/bus"
	"github.com/lecturecast/lecturecast/internal/events"
)

const (
	trackColor  = "#333"
	accentColor = "#a41034"
)

// Progress paints the playback position onto the container background.
type Progress struct {
	container *Container
}

func NewProgress(b *bus.Bus, c *Container) *Progress {
	p := &Progress{container: c}
	bus.Subscribe(b, events.VideoTick, p.Update)
	return p
}

// Update skips ticks without a positive duration.
func (p *Progress) Update(tick events.Tick) error {
	if tick.Duration <= 0 {
		return nil
	}
	p.container.background = Gradient(tick.Time / tick.Duration * 100)
	return nil
}

// Gradient splits the bar at progress percent with a one point accent band.
// progress is not clamped.
func Gradient(progress float64) string {
	p := strconv.FormatFloat(progress, 'f', -1, 64)
	p1 := strconv.FormatFloat(progress+1, 'f', -1, 64)
	return fmt.Sprintf("linear-gradient(to right, %[1]s 0px, %[1]s %[3]s%%, %[2]s %[3]s%%, %[2]s %[4]s%%, %[1]s %[4]s%%, %[1]s 100%%)",
		trackColor, accentColor, p, p1)
}
