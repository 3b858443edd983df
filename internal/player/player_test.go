package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lecturecast/lecturecast/internal/bus"
	"github.com/lecturecast/lecturecast/internal/episode"
	"github.com/lecturecast/lecturecast/internal/events"
	"github.com/lecturecast/lecturecast/internal/loader"
	"github.com/lecturecast/lecturecast/internal/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	chaptersEN = "WEBVTT\n\n1\n0:00:00 --> 0:05:00\nIntro\n\n2\n0:05:00 --> 0:10:00\nScratch\n"
	captionsEN = "1\n00:00:00,000 --> 00:00:03,000\nHello\n\n" +
		"2\n00:00:03,000 --> 00:00:06,000\n>> World\n\n" +
		"3\n00:06:40,000 --> 00:06:42,000\nLater\n"
	captionsFR = "1\n00:00:00,000 --> 00:00:04,000\nBonjour\n"
)

type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	errs   map[string]error
	block  map[string]chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	f.mu.Lock()
	ch := f.block[rawURL]
	err := f.errs[rawURL]
	body, ok := f.bodies[rawURL]
	f.mu.Unlock()

	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", rawURL)
	}
	return []byte(body), nil
}

func testEpisode() *episode.Episode {
	return &episode.Episode{
		ID:    "cs50-2016-fall-lecture-0",
		Title: "Week 0",
		Tracks: []episode.Track{
			{Kind: episode.Chapters, Language: "en", URL: "chapters/en.vtt"},
			{Kind: episode.Captions, Language: "en", URL: "captions/en.srt"},
			{Kind: episode.Captions, Language: "fr", URL: "captions/fr.srt"},
		},
	}
}

func newFetcher() *fakeFetcher {
	return &fakeFetcher{
		bodies: map[string]string{
			"chapters/en.vtt": chaptersEN,
			"captions/en.srt": captionsEN,
			"captions/fr.srt": captionsFR,
		},
		errs:  map[string]error{},
		block: map[string]chan struct{}{},
	}
}

func loadedPlayer(t *testing.T) *Player {
	t.Helper()
	p := New("sess-1", testEpisode(), newFetcher())
	require.NoError(t, p.Load(context.Background(), "en"))
	require.Empty(t, p.Drain())
	return p
}

func TestLoadRendersMergedTimeline(t *testing.T) {
	p := loadedPlayer(t)

	snap := p.Snapshot()
	assert.Equal(t, "sess-1", snap.SessionID)
	assert.Equal(t, "cs50-2016-fall-lecture-0", snap.EpisodeID)
	assert.Equal(t, "en", snap.Language)
	assert.Equal(t, []string{"en", "fr"}, snap.Languages)
	assert.Equal(t, timeline.NoActive, snap.Timeline.Active)

	var titles, types []string
	for _, el := range snap.Timeline.Elements {
		titles = append(titles, el.Title)
		types = append(types, el.Type)
	}
	assert.Equal(t, []string{"Intro", "Hello", "World", "Scratch", "Later"}, titles)
	assert.Equal(t, []string{"chapter", "caption", "caption", "chapter", "caption"}, types)
}

func TestTickEmitsActiveCommandOnce(t *testing.T) {
	p := loadedPlayer(t)

	require.NoError(t, p.Tick(4, 600))
	require.NoError(t, p.Tick(5, 600))

	cmds := p.Drain()
	require.Len(t, cmds, 1)
	assert.Equal(t, CommandActive, cmds[0].Type)
	require.NotNil(t, cmds[0].Index)
	assert.Equal(t, 2, *cmds[0].Index)
	assert.Equal(t, "World", cmds[0].Marker.Title)
	assert.Equal(t, 3.0, cmds[0].Value)

	snap := p.Snapshot()
	assert.Equal(t, 2, snap.Timeline.Active)
	assert.True(t, snap.Timeline.Elements[2].Active)
	assert.Contains(t, snap.Timeline.Background, "linear-gradient(to right")
}

func TestClickElementSeeks(t *testing.T) {
	p := loadedPlayer(t)

	require.NoError(t, p.ClickElement(2))
	require.NoError(t, p.ClickElement(3))

	cmds := p.Drain()
	require.Len(t, cmds, 2)
	assert.Equal(t, Command{Type: CommandSeek, Value: 3}, cmds[0])
	assert.Equal(t, Command{Type: CommandSeek, Value: 400}, cmds[1], "chapter seeks to the following element")

	err := p.ClickElement(99)
	assert.ErrorIs(t, err, ErrNoElement)
	assert.Empty(t, p.Drain())
}

func TestClickBackgroundSeeksToPercent(t *testing.T) {
	p := loadedPlayer(t)

	require.NoError(t, p.ClickBackground(1234, 1920))
	require.NoError(t, p.ClickBackground(10, 0))

	assert.Equal(t, []Command{{Type: CommandSeekPercent, Value: 0.64}}, p.Drain())
}

func TestHoverAndLeave(t *testing.T) {
	p := loadedPlayer(t)

	require.NoError(t, p.Hover(events.Pointer{PageX: 150, ContainerLeft: 50, ContainerWidth: 300}))
	require.NoError(t, p.Hover(events.Pointer{PageX: 150, ContainerWidth: 300, OverChapter: true}))
	require.NoError(t, p.Leave())

	assert.Equal(t, []Command{
		{Type: CommandPreview, Value: 0.333},
		{Type: CommandPreviewClear},
		{Type: CommandPreviewClear},
	}, p.Drain())
}

func TestLoadFailureRendersEmptyState(t *testing.T) {
	f := newFetcher()
	f.errs["captions/en.srt"] = errors.New("connection refused")
	p := New("sess-1", testEpisode(), f)

	err := p.Load(context.Background(), "en")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch captions")

	assert.Equal(t, []Command{{Type: CommandFailed, Message: failedMessage}}, p.Drain())
	snap := p.Snapshot()
	assert.Empty(t, snap.Timeline.Elements)
	assert.NotEmpty(t, snap.Timeline.Message)
}

func TestChangeLanguageRebuildsTimeline(t *testing.T) {
	p := loadedPlayer(t)
	var changes []string
	bus.Subscribe(p.Bus(), events.LanguageChanged, func(lang string) error {
		changes = append(changes, lang)
		return nil
	})

	require.NoError(t, p.Tick(4, 600))
	p.Drain()

	require.NoError(t, p.ChangeLanguage(context.Background(), "FR"))
	assert.Equal(t, []string{"fr"}, changes)

	snap := p.Snapshot()
	assert.Equal(t, "fr", snap.Language)
	assert.Equal(t, timeline.NoActive, snap.Timeline.Active, "new timeline resets the active marker")

	var titles []string
	for _, el := range snap.Timeline.Elements {
		titles = append(titles, el.Title)
	}
	assert.Equal(t, []string{"Intro", "Bonjour", "Scratch"}, titles, "chapters fall back to English")
}

func TestSlowLoadDoesNotOverwriteNewer(t *testing.T) {
	f := newFetcher()
	release := make(chan struct{})
	f.block["captions/en.srt"] = release
	p := New("sess-1", testEpisode(), f)

	slow := make(chan error, 1)
	go func() { slow <- p.Load(context.Background(), "en") }()
	require.Eventually(t, func() bool { return p.loader.Current() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, p.Load(context.Background(), "fr"))
	close(release)

	select {
	case err := <-slow:
		assert.ErrorIs(t, err, loader.ErrStale)
	case <-time.After(2 * time.Second):
		t.Fatal("slow load did not finish")
	}

	snap := p.Snapshot()
	assert.Equal(t, "fr", snap.Language)
	assert.Equal(t, "fr", snap.Timeline.Language)
	assert.Len(t, snap.Timeline.Elements, 3)
}

func TestLoadRegionalTrack(t *testing.T) {
	ep := &episode.Episode{
		ID: "cs50-2016-fall-lecture-0",
		Tracks: []episode.Track{
			{Kind: episode.Chapters, Language: "en-US", URL: "chapters/en-US.vtt"},
			{Kind: episode.Captions, Language: "en-US", URL: "captions/en-US.srt"},
			{Kind: episode.Captions, Language: "pt-BR", URL: "captions/pt-BR.srt"},
		},
	}
	f := &fakeFetcher{
		bodies: map[string]string{
			"chapters/en-US.vtt": chaptersEN,
			"captions/en-US.srt": captionsEN,
			"captions/pt-BR.srt": "1\n00:00:00,000 --> 00:00:04,000\nOlá\n",
		},
		errs:  map[string]error{},
		block: map[string]chan struct{}{},
	}
	p := New("sess-1", ep, f)

	for _, lang := range []string{"pt", "pt-BR"} {
		t.Run(lang, func(t *testing.T) {
			require.NoError(t, p.Load(context.Background(), lang))

			snap := p.Snapshot()
			assert.Equal(t, "pt", snap.Language)
			var titles []string
			for _, el := range snap.Timeline.Elements {
				titles = append(titles, el.Title)
			}
			assert.Equal(t, []string{"Intro", "Olá", "Scratch"}, titles, "Portuguese captions with en-US chapters")
		})
	}

	require.NoError(t, p.Load(context.Background(), "en"))
	assert.Equal(t, "Hello", p.Snapshot().Timeline.Elements[1].Title, "en resolves to the en-US track")
}

func TestSnapshotLanguageFollowsRenderedTimeline(t *testing.T) {
	f := newFetcher()
	p := New("sess-1", testEpisode(), f)
	require.NoError(t, p.Load(context.Background(), "en"))

	release := make(chan struct{})
	f.mu.Lock()
	f.block["captions/fr.srt"] = release
	f.mu.Unlock()

	pending := make(chan error, 1)
	go func() { pending <- p.Load(context.Background(), "fr") }()
	require.Eventually(t, func() bool { return p.loader.Current() == 2 }, time.Second, time.Millisecond)

	snap := p.Snapshot()
	assert.Equal(t, "en", snap.Language, "in-flight load does not relabel the shown timeline")
	assert.Equal(t, snap.Timeline.Language, snap.Language)

	require.NoError(t, p.Load(context.Background(), "en"))
	close(release)
	select {
	case err := <-pending:
		assert.ErrorIs(t, err, loader.ErrStale)
	case <-time.After(2 * time.Second):
		t.Fatal("pending load did not finish")
	}

	snap = p.Snapshot()
	assert.Equal(t, "en", snap.Language, "stale load does not change the language")
	assert.Equal(t, "en", snap.Timeline.Language)
}

func TestHTMLRendersTimeline(t *testing.T) {
	p := loadedPlayer(t)
	require.NoError(t, p.Tick(1, 600))

	html, err := p.HTML()
	require.NoError(t, err)
	assert.Contains(t, string(html), "<marker-timeline")
	assert.Contains(t, string(html), `class="active"`)
	assert.Contains(t, string(html), "World")
}
