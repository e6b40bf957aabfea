package suggest

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bastiangx/tagserve/pkg/rank"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	docs    map[string][]string
	order   []string
	listErr error
	tagErr  map[string]error
	delay   time.Duration
	reads   atomic.Int32
}

func (f *fakeProvider) Documents(ctx context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.order, nil
}

func (f *fakeProvider) TagsFor(ctx context.Context, id string) ([]string, error) {
	f.reads.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.tagErr[id]; err != nil {
		return nil, err
	}
	return f.docs[id], nil
}

func newFake() *fakeProvider {
	return &fakeProvider{
		docs: map[string][]string{
			"current.md": {"stale", "project"},
			"a.md":       {"project", "urgent", "billing"},
			"b.md":       {"project"},
			"c.md":       {"misc"},
		},
		// "orphan.md" has no metadata entry.
		order: []string{"current.md", "a.md", "b.md", "c.md", "orphan.md"},
	}
}

func quietEngine(p Provider, opts ...Option) *Engine {
	opts = append([]Option{WithLogger(log.New(io.Discard))}, opts...)
	return New(p, opts...)
}

func tagsOf(s []rank.Suggestion) []string {
	out := make([]string, len(s))
	for i, x := range s {
		out[i] = x.Tag
	}
	return out
}

func TestSuggest(t *testing.T) {
	e := quietEngine(newFake())
	ctx := context.Background()

	got, err := e.Suggest(ctx, Request{Document: "current.md", Text: "Meeting #project #urgent"})
	require.NoError(t, err)
	assert.Equal(t, []string{"billing", "misc"}, tagsOf(got))
	assert.Equal(t, 1, got[0].Histogram[2])

	got, err = e.Suggest(ctx, Request{Document: "current.md", Text: "Meeting #project #urgent", Query: "bl"})
	require.NoError(t, err)
	assert.Equal(t, []string{"billing"}, tagsOf(got))
}

func TestSuggestExcludesCurrentDocument(t *testing.T) {
	e := quietEngine(newFake())
	got, err := e.Suggest(context.Background(), Request{Document: "current.md"})
	require.NoError(t, err)
	assert.NotContains(t, tagsOf(got), "stale")

	got, err = e.Suggest(context.Background(), Request{Document: "other.md"})
	require.NoError(t, err)
	assert.Contains(t, tagsOf(got), "stale")
}

func TestSuggestLimit(t *testing.T) {
	e := quietEngine(newFake())
	got, err := e.Suggest(context.Background(), Request{Document: "current.md", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "project", got[0].Tag)
}

func TestSuggestDegradesOnProviderErrors(t *testing.T) {
	p := newFake()
	p.listErr = errors.New("disk on fire")
	e := quietEngine(p)

	got, err := e.Suggest(context.Background(), Request{Document: "current.md", Text: "#x"})
	require.NoError(t, err)
	assert.Empty(t, got)

	p = newFake()
	p.tagErr = map[string]error{"a.md": errors.New("unreadable")}
	e = quietEngine(p)
	got, err = e.Suggest(context.Background(), Request{Document: "current.md", Text: "#project"})
	require.NoError(t, err)
	assert.Equal(t, []string{"misc"}, tagsOf(got))
}

func TestSuggestCancelled(t *testing.T) {
	p := newFake()
	p.delay = time.Second
	e := quietEngine(p, WithWorkers(2))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	got, err := e.Suggest(ctx, Request{Document: "current.md"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, got)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestComplete(t *testing.T) {
	e := quietEngine(newFake())
	ctx := context.Background()

	tc, got, ok, err := e.Complete(ctx, "current.md", "#project new @bi", "new @bi", '@', 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "bi", tc.Query)
	assert.Equal(t, 4, tc.Start)
	assert.Equal(t, 7, tc.End)
	assert.Equal(t, []string{"billing"}, tagsOf(got))

	_, got, ok, err = e.Complete(ctx, "current.md", "plain", "plain", '@', 0)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestWithWorkersIgnoresNonPositive(t *testing.T) {
	e := New(newFake(), WithWorkers(0), WithLogger(nil))
	assert.Equal(t, DefaultWorkers, e.workers)
	assert.NotNil(t, e.logger)
}
