package timeline

import (
	"bytes"
	"html/template"

	"github.com/lecturecast/lecturecast/internal/marker"
)

var (
	chapterTemplate = template.Must(template.New("chapter").Parse(
		`<chapter- type="chapter" start="{{.Start}}" end="{{.End}}" title="{{.Title}}"><span>{{.Title}}</span></chapter->`))
	captionTemplate = template.Must(template.New("caption").Parse(
		`<mark- type="caption" start="{{.Start}}" end="{{.End}}" style="flex: {{.Flex}}"{{if .Active}} class="active"{{end}}><span>{{.Title}}</span></mark->`))
)

// ChapterLabel sits in front of the caption run it introduces and takes no
// timeline width. A click seeks to the element that follows it.
type ChapterLabel struct {
	marker  marker.Marker
	seekTo  float64
	onClick func(m marker.Marker, seekTo float64) error
}

func (l *ChapterLabel) Marker() marker.Marker { return l.marker }

// SeekTarget is the time a click on the label seeks to.
func (l *ChapterLabel) SeekTarget() float64 { return l.seekTo }

func (l *ChapterLabel) click() error {
	return l.onClick(l.marker, l.seekTo)
}

func (l *ChapterLabel) view(bool) ElementView {
	return ElementView{
		Type:  marker.Chapter.String(),
		ID:    l.marker.ID,
		Start: l.marker.Start,
		End:   l.marker.End,
		Title: l.marker.Title,
	}
}

func (l *ChapterLabel) markup(bool) (template.HTML, error) {
	var buf bytes.Buffer
	err := chapterTemplate.Execute(&buf, map[string]string{
		"Start": formatSeconds(l.marker.Start),
		"End":   formatSeconds(l.marker.End),
		"Title": l.marker.Title,
	})
	return template.HTML(buf.String()), err
}

// CaptionSegment takes timeline width proportional to its duration.
type CaptionSegment struct {
	marker  marker.Marker
	onClick func(m marker.Marker) error
}

func (s *CaptionSegment) Marker() marker.Marker { return s.marker }

// Flex is the grow and shrink factor of the segment.
func (s *CaptionSegment) Flex() float64 { return s.marker.Duration() }

func (s *CaptionSegment) click() error {
	return s.onClick(s.marker)
}

func (s *CaptionSegment) view(active bool) ElementView {
	return ElementView{
		Type:   marker.Caption.String(),
		ID:     s.marker.ID,
		Start:  s.marker.Start,
		End:    s.marker.End,
		Title:  s.marker.Title,
		Flex:   s.Flex(),
		Active: active,
	}
}

func (s *CaptionSegment) markup(active bool) (template.HTML, error) {
	flex := formatSeconds(s.Flex())
	var buf bytes.Buffer
	err := captionTemplate.Execute(&buf, struct {
		Start, End, Title string
		Flex              template.CSS
		Active            bool
	}{
		Start:  formatSeconds(s.marker.Start),
		End:    formatSeconds(s.marker.End),
		Title:  s.marker.Title,
		Flex:   template.CSS(flex + " " + flex + " auto"),
		Active: active,
	})
	return template.HTML(buf.String()), err
}
