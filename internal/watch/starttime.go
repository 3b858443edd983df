package watch

import (
	"strconv"
	"strings"

	"github.com/lecturecast/lecturecast/internal/validate"
)

// parseStartTime reads a YouTube style ?t= value ("90", "90s", "1h2m3s")
// into seconds. Anything malformed or out of range starts at 0.
func parseStartTime(raw string) int {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return 0
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return clampStart(n)
	}

	total, num := 0, ""
	var seen string
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
		case r == 'h' || r == 'm' || r == 's':
			if num == "" || strings.ContainsRune(seen, r) {
				return 0
			}
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0
			}
			switch r {
			case 'h':
				total += n * 3600
			case 'm':
				total += n * 60
			default:
				total += n
			}
			seen += string(r)
			num = ""
		default:
			return 0
		}
	}
	if num != "" {
		return 0
	}
	return clampStart(total)
}

func clampStart(seconds int) int {
	if seconds < 0 || seconds > validate.MaxPlaybackSeconds {
		return 0
	}
	return seconds
}
