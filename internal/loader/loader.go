// Package loader fetches the chapter and caption resources of an episode and
// hands the merged timeline to the bus.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/lecturecast/lecturecast/internal/bus"
	"github.com/lecturecast/lecturecast/internal/cue"
	"github.com/lecturecast/lecturecast/internal/events"
	"github.com/lecturecast/lecturecast/internal/marker"
	"golang.org/x/sync/errgroup"
)

// ErrStale is returned for a load overtaken by a newer one.
var ErrStale = errors.New("loader: superseded by a newer load")

type Request struct {
	Language    string
	ChaptersURL string
	CaptionsURL string
}

// Result is the outcome of one fetch cycle, ready to be published.
type Result struct {
	Generation uint64
	Language   string
	Timeline   marker.Timeline
	Err        error
}

type Loader struct {
	bus        *bus.Bus
	fetcher    Fetcher
	generation atomic.Uint64
}

func New(b *bus.Bus, f Fetcher) *Loader {
	return &Loader{bus: b, fetcher: f}
}

// Current is the generation of the latest started load.
func (l *Loader) Current() uint64 {
	return l.generation.Load()
}

// Load fetches and publishes in one step.
func (l *Loader) Load(ctx context.Context, req Request) (marker.Timeline, error) {
	res := l.Fetch(ctx, req)
	return res.Timeline, l.Publish(res)
}

// Fetch starts a new generation and retrieves both resources concurrently.
// Parsing starts only once both fetches have succeeded.
func (l *Loader) Fetch(ctx context.Context, req Request) Result {
	res := Result{Generation: l.generation.Add(1), Language: req.Language}

	var chaptersRaw, captionsRaw []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		chaptersRaw, err = l.fetchOptional(gctx, req.ChaptersURL)
		if err != nil {
			return fmt.Errorf("fetch chapters: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		captionsRaw, err = l.fetchOptional(gctx, req.CaptionsURL)
		if err != nil {
			return fmt.Errorf("fetch captions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		res.Err = err
		return res
	}

	chapters := cue.ParseChapters(string(chaptersRaw))
	captions := cue.ParseCaptions(string(captionsRaw))
	res.Timeline = marker.Merge(chapters, captions)
	slog.Info("loader: timeline ready",
		"generation", res.Generation,
		"language", req.Language,
		"chapters", len(chapters),
		"captions", len(captions),
	)
	return res
}

// Publish announces a fetch result unless a newer load has started since.
// Failed loads publish MarkersFailed and return the fetch error.
func (l *Loader) Publish(res Result) error {
	if res.Generation != l.generation.Load() {
		slog.Info("loader: dropping stale result", "generation", res.Generation, "current", l.generation.Load())
		return ErrStale
	}

	if res.Err != nil {
		slog.Error("loader: fetch failed", "generation", res.Generation, "language", res.Language, "error", res.Err)
		if err := bus.Publish(l.bus, events.MarkersFailed, events.LoadFailure{
			Generation: res.Generation,
			Language:   res.Language,
			Err:        res.Err,
		}); err != nil {
			slog.Warn("loader: failure handlers returned errors", "error", err)
		}
		return res.Err
	}

	return bus.Publish(l.bus, events.MarkersFetched, events.TimelineLoaded{
		Generation: res.Generation,
		Language:   res.Language,
		Timeline:   res.Timeline,
	})
}

func (l *Loader) fetchOptional(ctx context.Context, rawURL string) ([]byte, error) {
	if rawURL == "" {
		return nil, nil
	}
	return l.fetcher.Fetch(ctx, rawURL)
}
