package validate

import "fmt"

// Request field limits.
const (
	MaxLanguageLength  = 35
	MaxPasswordLength  = 72
	MaxEpisodeIDLength = 200
	MaxPlaybackSeconds = 7 * 24 * 60 * 60
)

func checkLen(value string, max int, field string) string {
	if len(value) > max {
		return fmt.Sprintf("%s must be %d characters or fewer", field, max)
	}
	return ""
}

// Language accepts BCP 47 style tags up to the RFC 5646 recommended length.
func Language(s string) string { return checkLen(s, MaxLanguageLength, "language") }

// Password rejects input longer than bcrypt will compare.
func Password(s string) string { return checkLen(s, MaxPasswordLength, "password") }

func EpisodeID(s string) string { return checkLen(s, MaxEpisodeIDLength, "episode id") }

// PlaybackTime rejects negative or absurd positions reported by a player.
func PlaybackTime(seconds float64, field string) string {
	if seconds < 0 || seconds > MaxPlaybackSeconds {
		return fmt.Sprintf("%s must be between 0 and %d seconds", field, MaxPlaybackSeconds)
	}
	return ""
}

// First returns the first non-empty message.
func First(messages ...string) string {
	for _, m := range messages {
		if m != "" {
			return m
		}
	}
	return ""
}

// FieldLimits returns a map of field names to max lengths for clients.
func FieldLimits() map[string]int {
	return map[string]int{
		"language":  MaxLanguageLength,
		"password":  MaxPasswordLength,
		"episodeId": MaxEpisodeIDLength,
	}
}
