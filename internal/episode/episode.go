package episode

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/lecturecast/lecturecast/internal/database"
	"github.com/lecturecast/lecturecast/internal/languages"
	"golang.org/x/crypto/bcrypt"
)

// DefaultLanguage is used when an episode has no track in the requested
// language.
const DefaultLanguage = "en"

var ErrNotFound = errors.New("episode not found")

type TrackKind string

const (
	Chapters TrackKind = "chapters"
	Captions TrackKind = "captions"
)

type Track struct {
	Kind     TrackKind `json:"kind"`
	Language string    `json:"srclang"`
	URL      string    `json:"src"`
}

type Episode struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	VideoKey     string  `json:"-"`
	PasswordHash *string `json:"-"`
	Tracks       []Track `json:"tracks"`
}

// ResourceURL returns the track URL for lang, falling back to English, or ""
// when the episode has neither. An exact srclang wins over a regional
// variant of the same language, so "pt" finds a "pt-BR" track.
func (e *Episode) ResourceURL(kind TrackKind, lang string) string {
	primary := languages.Normalize(lang)
	var sameLanguage, fallback string
	for _, t := range e.Tracks {
		if t.Kind != kind {
			continue
		}
		if strings.EqualFold(t.Language, lang) {
			return t.URL
		}
		trackPrimary := languages.Normalize(t.Language)
		if sameLanguage == "" && trackPrimary == primary {
			sameLanguage = t.URL
		}
		if fallback == "" && trackPrimary == DefaultLanguage {
			fallback = t.URL
		}
	}
	if sameLanguage != "" {
		return sameLanguage
	}
	return fallback
}

// Languages lists the caption languages in catalog order.
func (e *Episode) Languages() []string {
	var langs []string
	for _, t := range e.Tracks {
		if t.Kind == Captions && !slices.Contains(langs, t.Language) {
			langs = append(langs, t.Language)
		}
	}
	return langs
}

func (e *Episode) Protected() bool {
	return e.PasswordHash != nil
}

// CheckPassword reports whether password unlocks the episode. Unprotected
// episodes accept any password.
func (e *Episode) CheckPassword(password string) bool {
	if e.PasswordHash == nil {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(*e.PasswordHash), []byte(password)) == nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

type Store struct {
	db database.DBTX
}

func NewStore(db database.DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, id string) (*Episode, error) {
	ep := &Episode{ID: id}
	err := s.db.QueryRow(ctx,
		`SELECT title, video_key, password_hash FROM episodes WHERE id = $1`,
		id,
	).Scan(&ep.Title, &ep.VideoKey, &ep.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query episode %s: %w", id, err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT kind, srclang, url FROM episode_tracks WHERE episode_id = $1 ORDER BY kind, srclang`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query tracks %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var t Track
		if err := rows.Scan(&t.Kind, &t.Language, &t.URL); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		ep.Tracks = append(ep.Tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}
	return ep, nil
}
