package marker

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
)

type Kind int

const (
	Chapter Kind = iota
	Caption
)

func (k Kind) String() string {
	switch k {
	case Chapter:
		return "chapter"
	case Caption:
		return "caption"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("marker kind: %w", err)
	}
	switch s {
	case "chapter":
		*k = Chapter
	case "caption":
		*k = Caption
	default:
		return fmt.Errorf("marker kind: unknown %q", s)
	}
	return nil
}

// Marker is one parsed cue. ID comes from the source stream and is not unique
// across kinds.
type Marker struct {
	Kind  Kind    `json:"type"`
	ID    string  `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Title string  `json:"title"`
}

func (m Marker) Duration() float64 {
	return m.End - m.Start
}

// Timeline is a sequence of markers ordered by Start.
type Timeline []Marker

// Merge concatenates chapters then captions and stable-sorts by Start, so a
// chapter sharing a start time with a caption stays in front of it.
func Merge(chapters, captions []Marker) Timeline {
	tl := make(Timeline, 0, len(chapters)+len(captions))
	tl = append(tl, chapters...)
	tl = append(tl, captions...)
	slices.SortStableFunc(tl, compareStart)
	return tl
}

func compareStart(a, b Marker) int {
	return cmp.Compare(a.Start, b.Start)
}

// Ordered reports whether starts are non-decreasing.
func (tl Timeline) Ordered() bool {
	return slices.IsSortedFunc(tl, compareStart)
}

// Captions returns the indices of caption markers in timeline order.
func (tl Timeline) Captions() []int {
	idx := make([]int, 0, len(tl))
	for i, m := range tl {
		if m.Kind == Caption {
			idx = append(idx, i)
		}
	}
	return idx
}

// Duration is the end of the latest-ending marker.
func (tl Timeline) Duration() float64 {
	var end float64
	for _, m := range tl {
		end = max(end, m.End)
	}
	return end
}
