package languages

import (
	"slices"
	"strings"
)

type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Option is one entry of the caption language picker.
type Option struct {
	Language
	Selected bool `json:"selected"`
}

var names = map[string]string{
	"ar": "العربية",
	"bn": "বাংলা",
	"de": "Deutsch",
	"el": "Ελληνικά",
	"en": "English",
	"es": "Español",
	"fa": "فارسی",
	"fr": "Français",
	"he": "עברית",
	"hi": "हिन्दी",
	"id": "Bahasa Indonesia",
	"it": "Italiano",
	"ja": "日本語",
	"ko": "한국어",
	"nl": "Nederlands",
	"pl": "Polski",
	"pt": "Português",
	"ru": "Русский",
	"sv": "Svenska",
	"th": "ไทย",
	"tr": "Türkçe",
	"uk": "Українська",
	"vi": "Tiếng Việt",
	"zh": "中文",
}

// Normalize lowercases a track language tag and reduces regional variants
// ("pt-BR", "zh_Hant") to their primary subtag.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if primary, _, found := strings.Cut(strings.ReplaceAll(code, "_", "-"), "-"); found {
		return primary
	}
	return code
}

// Name returns the native display name of code, or the code itself when it
// is unknown.
func Name(code string) string {
	if name, ok := names[Normalize(code)]; ok {
		return name
	}
	return code
}

func IsKnown(code string) bool {
	_, ok := names[Normalize(code)]
	return ok
}

// Options builds the picker for the given track languages, sorted by code,
// marking selected.
func Options(codes []string, selected string) []Option {
	selected = Normalize(selected)
	seen := make(map[string]bool, len(codes))
	opts := make([]Option, 0, len(codes))
	for _, code := range codes {
		code = Normalize(code)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		opts = append(opts, Option{
			Language: Language{Code: code, Name: Name(code)},
			Selected: code == selected,
		})
	}
	slices.SortFunc(opts, func(a, b Option) int {
		return strings.Compare(a.Code, b.Code)
	})
	return opts
}
