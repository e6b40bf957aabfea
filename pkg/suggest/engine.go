package suggest

import (
	"context"
	"time"

	"github.com/bastiangx/tagserve/pkg/rank"
	"github.com/bastiangx/tagserve/pkg/tags"
	"github.com/bastiangx/tagserve/pkg/trigger"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds concurrent metadata reads.
const DefaultWorkers = 8

// Engine answers suggestion requests against a Provider.
// Nothing is kept between requests.
type Engine struct {
	provider Provider
	workers  int
	logger   *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets how many documents are read at once.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger replaces the default logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New builds an Engine over p.
func New(p Provider, opts ...Option) *Engine {
	e := &Engine{
		provider: p,
		workers:  DefaultWorkers,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Suggest ranks the corpus tags for req. Provider failures only shrink the
// corpus; the returned error is non-nil only when ctx ends first.
func (e *Engine) Suggest(ctx context.Context, req Request) ([]rank.Suggestion, error) {
	start := time.Now()
	current := tags.ExtractLive(req.Text)

	corpus, err := e.corpus(ctx, req.Document)
	if err != nil {
		return nil, err
	}

	out := rank.RankScored(current, corpus, req.Query)
	if req.Limit > 0 && len(out) > req.Limit {
		out = out[:req.Limit]
	}

	e.logger.Debug("Ranked suggestions",
		"doc", req.Document,
		"query", req.Query,
		"corpus", len(corpus),
		"results", len(out),
		"took", time.Since(start))
	return out, nil
}

// Complete detects a trigger in before (the line up to the cursor) and, if
// one is active, ranks suggestions for its query. ok is false when the line
// does not end in a trigger.
func (e *Engine) Complete(ctx context.Context, doc, text, before string, marker rune, limit int) (trigger.Context, []rank.Suggestion, bool, error) {
	tc, ok := trigger.Detect(before, marker)
	if !ok {
		return trigger.Context{}, nil, false, nil
	}
	out, err := e.Suggest(ctx, Request{
		Document: doc,
		Text:     text,
		Query:    tc.Query,
		Limit:    limit,
	})
	if err != nil {
		return tc, nil, true, err
	}
	return tc, out, true, nil
}

// corpus reads the tag sets of every document except exclude. Each worker
// writes only its own slot so no locking is needed.
func (e *Engine) corpus(ctx context.Context, exclude string) ([][]string, error) {
	docs, err := e.provider.Documents(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Warnf("Corpus enumeration failed, using empty corpus: %v", err)
		return nil, nil
	}

	ids := docs[:0:0]
	for _, id := range docs {
		if id != exclude {
			ids = append(ids, id)
		}
	}

	sets := make([][]string, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			docTags, err := e.provider.TagsFor(gctx, id)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				e.logger.Warnf("Skipping %s: %v", id, err)
				return nil
			}
			sets[i] = docTags
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return sets, nil
}
