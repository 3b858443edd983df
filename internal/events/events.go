// Package events declares the channels exchanged on a player bus.
package events

import (
	"github.com/lecturecast/lecturecast/internal/bus"
	"github.com/lecturecast/lecturecast/internal/marker"
)

// TimelineLoaded is published once both cue resources of a load cycle have
// been fetched and merged.
type TimelineLoaded struct {
	Generation uint64
	Language   string
	Timeline   marker.Timeline
}

type LoadFailure struct {
	Generation uint64
	Language   string
	Err        error
}

type Tick struct {
	Time     float64
	Duration float64
}

// Pointer is the part of a pointer event the timeline cares about.
type Pointer struct {
	PageX          float64 `json:"pageX"`
	PageY          float64 `json:"pageY"`
	ContainerLeft  float64 `json:"containerLeft"`
	ContainerWidth float64 `json:"containerWidth"`
	OverChapter    bool    `json:"overChapter"`
}

type Hover struct {
	Fraction float64
	Pointer  Pointer
}

type Active struct {
	Index  int
	Marker marker.Marker
}

// Interaction mirrors an analytics event: category, action, label, value.
type Interaction struct {
	Category string
	Action   string
	Label    string
	Value    float64
}

var (
	MarkersFetched  = bus.NewChannel[TimelineLoaded]("markers:fetched")
	MarkersFailed   = bus.NewChannel[LoadFailure]("markers:failed")
	VideoTick       = bus.NewChannel[Tick]("video:tick")
	SeekTo          = bus.NewChannel[float64]("video:seekTo")
	SeekToPercent   = bus.NewChannel[float64]("video:seekToPercent")
	TimelineHover   = bus.NewChannel[Hover]("timeline:mouseover")
	TimelineLeave   = bus.NewChannel[struct{}]("timeline:mouseleave")
	ActiveMarker    = bus.NewChannel[Active]("timeline:active")
	LanguageChanged = bus.NewChannel[string]("player:changeLanguage")
	Interactions    = bus.NewChannel[Interaction]("analytics:interaction")
)
