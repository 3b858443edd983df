package player

import (
	"github.com/lecturecast/lecturecast/internal/bus"
	"github.com/lecturecast/lecturecast/internal/events"
	"github.com/lecturecast/lecturecast/internal/marker"
)

type CommandType string

const (
	CommandSeek         CommandType = "seek"
	CommandSeekPercent  CommandType = "seekPercent"
	CommandPreview      CommandType = "preview"
	CommandPreviewClear CommandType = "previewClear"
	CommandActive       CommandType = "active"
	CommandFailed       CommandType = "failed"
)

// Command is an instruction for the browser's video component. Value holds
// seconds for seek, a 0..1 fraction for seekPercent and preview.
type Command struct {
	Type    CommandType    `json:"type"`
	Value   float64        `json:"value"`
	Index   *int           `json:"index,omitempty"`
	Marker  *marker.Marker `json:"marker,omitempty"`
	Message string         `json:"message,omitempty"`
}

const failedMessage = "timeline unavailable"

// outbox queues the commands a session emits between two drains.
type outbox struct {
	commands []Command
}

func newOutbox(b *bus.Bus) *outbox {
	o := &outbox{}
	bus.Subscribe(b, events.SeekTo, func(t float64) error {
		o.push(Command{Type: CommandSeek, Value: t})
		return nil
	})
	bus.Subscribe(b, events.SeekToPercent, func(p float64) error {
		o.push(Command{Type: CommandSeekPercent, Value: p})
		return nil
	})
	bus.Subscribe(b, events.TimelineHover, func(h events.Hover) error {
		o.push(Command{Type: CommandPreview, Value: h.Fraction})
		return nil
	})
	bus.Subscribe(b, events.TimelineLeave, func(struct{}) error {
		o.push(Command{Type: CommandPreviewClear})
		return nil
	})
	bus.Subscribe(b, events.ActiveMarker, func(a events.Active) error {
		index, m := a.Index, a.Marker
		o.push(Command{Type: CommandActive, Value: m.Start, Index: &index, Marker: &m})
		return nil
	})
	bus.Subscribe(b, events.MarkersFailed, func(events.LoadFailure) error {
		o.push(Command{Type: CommandFailed, Message: failedMessage})
		return nil
	})
	return o
}

func (o *outbox) push(c Command) {
	o.commands = append(o.commands, c)
}

func (o *outbox) drain() []Command {
	out := o.commands
	o.commands = nil
	if out == nil {
		return []Command{}
	}
	return out
}
