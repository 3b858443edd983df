package loader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lecturecast/lecturecast/internal/bus"
	"github.com/lecturecast/lecturecast/internal/events"
	"github.com/lecturecast/lecturecast/internal/marker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapFetcher struct {
	bodies map[string]string
	errs   map[string]error
	block  map[string]chan struct{}
}

func (m *mapFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if ch, ok := m.block[rawURL]; ok {
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := m.errs[rawURL]; ok {
		return nil, err
	}
	body, ok := m.bodies[rawURL]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", rawURL)
	}
	return []byte(body), nil
}

type mockObjects struct {
	key      string
	maxBytes int64
	data     []byte
	err      error
}

func (m *mockObjects) ReadObject(_ context.Context, key string, maxBytes int64) ([]byte, error) {
	m.key = key
	m.maxBytes = maxBytes
	return m.data, m.err
}

const (
	chaptersVTT = "WEBVTT\n\n1\n0:00:00 --> 0:05:00\nIntro\n"
	captionsVTT = "WEBVTT\n\n1\n0:00:00,000 --> 0:00:03,000\nHello\n"
)

func record(b *bus.Bus) (*[]events.TimelineLoaded, *[]events.LoadFailure) {
	var loaded []events.TimelineLoaded
	var failed []events.LoadFailure
	bus.Subscribe(b, events.MarkersFetched, func(ev events.TimelineLoaded) error { loaded = append(loaded, ev); return nil })
	bus.Subscribe(b, events.MarkersFailed, func(f events.LoadFailure) error { failed = append(failed, f); return nil })
	return &loaded, &failed
}

func TestLoadPublishesMergedTimeline(t *testing.T) {
	b := bus.New()
	loaded, failed := record(b)
	l := New(b, &mapFetcher{bodies: map[string]string{"c": chaptersVTT, "s": captionsVTT}})

	tl, err := l.Load(context.Background(), Request{Language: "en", ChaptersURL: "c", CaptionsURL: "s"})
	require.NoError(t, err)
	require.Len(t, tl, 2)
	assert.Equal(t, marker.Chapter, tl[0].Kind)
	assert.Equal(t, marker.Caption, tl[1].Kind)

	require.Len(t, *loaded, 1)
	assert.Equal(t, uint64(1), (*loaded)[0].Generation)
	assert.Equal(t, "en", (*loaded)[0].Language)
	assert.Empty(t, *failed)
}

func TestLoadWithoutChapters(t *testing.T) {
	b := bus.New()
	loaded, _ := record(b)
	l := New(b, &mapFetcher{bodies: map[string]string{"s": captionsVTT}})

	tl, err := l.Load(context.Background(), Request{Language: "en", CaptionsURL: "s"})
	require.NoError(t, err)
	assert.Len(t, tl, 1)
	assert.Len(t, *loaded, 1)
}

func TestLoadFailurePublishesMarkersFailed(t *testing.T) {
	b := bus.New()
	loaded, failed := record(b)
	boom := errors.New("connection refused")
	l := New(b, &mapFetcher{
		bodies: map[string]string{"c": chaptersVTT},
		errs:   map[string]error{"s": boom},
	})

	_, err := l.Load(context.Background(), Request{Language: "fr", ChaptersURL: "c", CaptionsURL: "s"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fetch captions")

	assert.Empty(t, *loaded)
	require.Len(t, *failed, 1)
	assert.Equal(t, "fr", (*failed)[0].Language)
	assert.ErrorIs(t, (*failed)[0].Err, boom)
}

func TestStaleResultIsNotPublished(t *testing.T) {
	b := bus.New()
	loaded, _ := record(b)
	l := New(b, &mapFetcher{bodies: map[string]string{"c": chaptersVTT, "s": captionsVTT}})

	first := l.Fetch(context.Background(), Request{Language: "en", ChaptersURL: "c", CaptionsURL: "s"})
	second := l.Fetch(context.Background(), Request{Language: "fr", ChaptersURL: "c", CaptionsURL: "s"})
	assert.Equal(t, uint64(2), l.Current())

	require.NoError(t, l.Publish(second))
	assert.ErrorIs(t, l.Publish(first), ErrStale)

	require.Len(t, *loaded, 1)
	assert.Equal(t, "fr", (*loaded)[0].Language)
}

func TestSlowFirstLoadCannotOverwriteSecond(t *testing.T) {
	b := bus.New()
	loaded, _ := record(b)
	release := make(chan struct{})
	l := New(b, &mapFetcher{
		bodies: map[string]string{"slow": captionsVTT, "fast": captionsVTT},
		block:  map[string]chan struct{}{"slow": release},
	})

	done := make(chan error, 1)
	go func() {
		_, err := l.Load(context.Background(), Request{Language: "en", CaptionsURL: "slow"})
		done <- err
	}()

	require.Eventually(t, func() bool { return l.Current() == 1 }, time.Second, time.Millisecond)
	_, err := l.Load(context.Background(), Request{Language: "de", CaptionsURL: "fast"})
	require.NoError(t, err)

	close(release)
	assert.ErrorIs(t, <-done, ErrStale)
	require.Len(t, *loaded, 1)
	assert.Equal(t, "de", (*loaded)[0].Language)
}

func TestHTTPFetcher(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/ok.vtt":
			_, _ = w.Write([]byte(captionsVTT))
		case "/big.vtt":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second, 32)
	data, err := f.Fetch(context.Background(), srv.URL+"/ok.vtt")
	require.NoError(t, err)
	assert.Equal(t, captionsVTT, string(data))
	assert.Equal(t, DefaultUserAgent, gotUA)

	_, err = f.Fetch(context.Background(), srv.URL+"/missing.vtt")
	assert.ErrorIs(t, err, ErrStatus)

	_, err = f.Fetch(context.Background(), srv.URL+"/big.vtt")
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = f.Fetch(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestRouterSendsObjectURLsToStorage(t *testing.T) {
	objects := &mockObjects{data: []byte(captionsVTT)}
	httpFetcher := &mapFetcher{bodies: map[string]string{"https://cdn.example/c.vtt": chaptersVTT}}
	r := &Router{HTTP: httpFetcher, Objects: objects, MaxBytes: 1024}

	data, err := r.Fetch(context.Background(), "s3://lectures/week0/captions/en.vtt")
	require.NoError(t, err)
	assert.Equal(t, captionsVTT, string(data))
	assert.Equal(t, "week0/captions/en.vtt", objects.key)
	assert.Equal(t, int64(1024), objects.maxBytes)

	data, err = r.Fetch(context.Background(), "https://cdn.example/c.vtt")
	require.NoError(t, err)
	assert.Equal(t, chaptersVTT, string(data))

	_, err = (&Router{HTTP: httpFetcher}).Fetch(context.Background(), "s3://lectures/x.vtt")
	assert.Error(t, err)

	_, err = r.Fetch(context.Background(), "s3://lectures")
	assert.Error(t, err)
}
