// Package timeline renders a merged marker timeline into an interactive
// widget and keeps it in step with playback.
package timeline

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"

	"github.com/lecturecast/lecturecast/internal/marker"
)

// Element is one rendered marker. The set of variants is closed:
// ChapterLabel and CaptionSegment.
type Element interface {
	Marker() marker.Marker
	markup(active bool) (template.HTML, error)
	view(active bool) ElementView
	click() error
}

// BackgroundClick is a click on the container that no element handled.
type BackgroundClick struct {
	PageX         float64 `json:"pageX"`
	ViewportWidth float64 `json:"viewportWidth"`
}

// Container is the handle a Renderer draws into. Element indexes match
// timeline indexes.
type Container struct {
	elements   []Element
	generation uint64
	language   string
	background string
	message    string

	onBackground func(BackgroundClick) error
}

func NewContainer() *Container {
	return &Container{}
}

func (c *Container) Len() int {
	return len(c.elements)
}

func (c *Container) Element(i int) (Element, bool) {
	if i < 0 || i >= len(c.elements) {
		return nil, false
	}
	return c.elements[i], true
}

// Background is the current progress gradient.
func (c *Container) Background() string {
	return c.background
}

// Message is set when the last load failed.
func (c *Container) Message() string {
	return c.message
}

func (c *Container) Generation() uint64 {
	return c.generation
}

// Click delivers a click on element target, or on the container background
// when target is out of range. Element clicks never reach the background
// handler.
func (c *Container) Click(target int, bg BackgroundClick) error {
	if el, ok := c.Element(target); ok {
		return el.click()
	}
	if c.onBackground == nil {
		return nil
	}
	return c.onBackground(bg)
}

func (c *Container) replace(elements []Element, generation uint64, language string) {
	c.elements = elements
	c.generation = generation
	c.language = language
	c.message = ""
}

func (c *Container) clear(message string) {
	c.elements = nil
	c.message = message
}

type ElementView struct {
	Type   string  `json:"type"`
	ID     string  `json:"id"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Title  string  `json:"title"`
	Flex   float64 `json:"flex,omitempty"`
	Active bool    `json:"active,omitempty"`
}

type View struct {
	Generation uint64        `json:"generation"`
	Language   string        `json:"language"`
	Elements   []ElementView `json:"elements"`
	Active     int           `json:"active"`
	Background string        `json:"background,omitempty"`
	Message    string        `json:"message,omitempty"`
}

// View snapshots the container with the active flag derived from active.
func (c *Container) View(active int) View {
	v := View{
		Generation: c.generation,
		Language:   c.language,
		Elements:   make([]ElementView, 0, len(c.elements)),
		Active:     active,
		Background: c.background,
		Message:    c.message,
	}
	for i, el := range c.elements {
		v.Elements = append(v.Elements, el.view(i == active))
	}
	return v
}

var containerTemplate = template.Must(template.New("marker-timeline").Parse(
	`<marker-timeline{{with .Background}} style="background-image: {{.}}"{{end}}>` +
		`{{range .Elements}}{{.}}{{end}}` +
		`{{with .Message}}<p class="timeline-empty">{{.}}</p>{{end}}` +
		`</marker-timeline>`))

// HTML renders the container markup with the element at index active
// flagged as active.
func (c *Container) HTML(active int) (template.HTML, error) {
	parts := make([]template.HTML, 0, len(c.elements))
	for i, el := range c.elements {
		h, err := el.markup(i == active)
		if err != nil {
			return "", fmt.Errorf("render element %d: %w", i, err)
		}
		parts = append(parts, h)
	}

	var buf bytes.Buffer
	err := containerTemplate.Execute(&buf, struct {
		Background template.CSS
		Elements   []template.HTML
		Message    string
	}{
		Background: template.CSS(c.background),
		Elements:   parts,
		Message:    c.message,
	})
	if err != nil {
		return "", fmt.Errorf("render container: %w", err)
	}
	return template.HTML(buf.String()), nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
