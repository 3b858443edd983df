// Package cue parses chapter and caption text streams into markers.
package cue

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lecturecast/lecturecast/internal/marker"
)

const (
	header         = "WEBVTT"
	arrow          = "-->"
	speakerMarker  = ">>"
	hyphenArtifact = "-"

	// NoSpeech is the title of a caption whose text is empty.
	NoSpeech = "[no speech]"
)

var (
	errMissingTiming = errors.New("missing timing line")
	errBadTiming     = errors.New("malformed timing line")
)

// ParseChapterTimestamp parses H:M:S into seconds.
func ParseChapterTimestamp(ts string) (float64, error) {
	return parseClock(ts)
}

// ParseCaptionTimestamp parses H:M:S,mmm into seconds. A dot separator is
// accepted as well.
func ParseCaptionTimestamp(ts string) (float64, error) {
	return parseClock(strings.Replace(ts, ",", ".", 1))
}

func parseClock(ts string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(ts), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("timestamp %q: want hours:minutes:seconds", ts)
	}

	hours, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, fmt.Errorf("timestamp %q hours: %w", ts, err)
	}
	minutes, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, fmt.Errorf("timestamp %q minutes: %w", ts, err)
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("timestamp %q seconds: %w", ts, err)
	}
	if hours < 0 || minutes < 0 || seconds < 0 {
		return 0, fmt.Errorf("timestamp %q: negative component", ts)
	}

	return hours*3600 + minutes*60 + seconds, nil
}

// ParseChapters parses blocks of id / start --> end / title.
func ParseChapters(raw string) []marker.Marker {
	var out []marker.Marker
	for _, lines := range blocks(raw) {
		start, end, err := timing(lines, ParseChapterTimestamp)
		if err != nil {
			slog.Debug("cue: dropping chapter block", "id", lines[0], "error", err)
			continue
		}
		title := ""
		if len(lines) > 2 {
			title = strings.TrimSpace(lines[2])
		}
		out = append(out, marker.Marker{
			Kind:  marker.Chapter,
			ID:    strings.TrimSpace(lines[0]),
			Start: start,
			End:   end,
			Title: title,
		})
	}
	return out
}

// ParseCaptions parses blocks of id / start --> end / text lines. Blocks
// without a timing line are dropped.
func ParseCaptions(raw string) []marker.Marker {
	var out []marker.Marker
	for _, lines := range blocks(raw) {
		start, end, err := timing(lines, ParseCaptionTimestamp)
		if err != nil {
			slog.Debug("cue: dropping caption block", "id", lines[0], "error", err)
			continue
		}
		out = append(out, marker.Marker{
			Kind:  marker.Caption,
			ID:    strings.TrimSpace(lines[0]),
			Start: start,
			End:   end,
			Title: captionTitle(lines[2:]),
		})
	}
	return out
}

func captionTitle(text []string) string {
	parts := make([]string, 0, len(text))
	for _, line := range text {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	title := strings.Join(parts, " ")
	title = strings.TrimPrefix(title, speakerMarker)
	title = strings.TrimSpace(title)
	if title == hyphenArtifact {
		title = ""
	}
	if title == "" {
		return NoSpeech
	}
	return title
}

// timing parses the second line of a block. Cue settings after the end
// timestamp are ignored.
func timing(lines []string, parse func(string) (float64, error)) (float64, float64, error) {
	if len(lines) < 2 {
		return 0, 0, errMissingTiming
	}
	from, to, ok := strings.Cut(lines[1], arrow)
	if !ok {
		return 0, 0, errBadTiming
	}
	toFields := strings.Fields(to)
	if len(toFields) == 0 {
		return 0, 0, errBadTiming
	}

	start, err := parse(from)
	if err != nil {
		return 0, 0, err
	}
	end, err := parse(toFields[0])
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, fmt.Errorf("%w: end %v before start %v", errBadTiming, end, start)
	}
	return start, end, nil
}

// blocks strips the header token and splits the payload on blank lines.
// Every returned block starts with its id line; cues written without an
// identifier get an empty one.
func blocks(raw string) [][]string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.TrimSpace(raw)
	raw = strings.TrimSpace(strings.TrimPrefix(raw, header))

	var out [][]string
	var current []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				out = append(out, current)
				current = nil
			}
			continue
		}
		if len(current) == 0 && strings.Contains(line, arrow) {
			current = append(current, "")
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}
