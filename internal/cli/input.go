// Package cli handles cmd line input and suggestions for DBG and testing the ranking against a real vault
package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/tagserve/pkg/suggest"
	"github.com/bastiangx/tagserve/pkg/trigger"
	"github.com/bastiangx/tagserve/pkg/vault"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// tagsCommand lists known tags by prefix instead of ranking.
const tagsCommand = ":tags"

var (
	tagStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#286983", Dark: "#9ccfd8"})
	previewStyle = lipgloss.NewStyle().Italic(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#797593", Dark: "#908caa"})
)

// TagLister builds the index behind the tags command.
type TagLister interface {
	Index(ctx context.Context) (*vault.TagIndex, error)
}

// InputHandler reads lines from stdin and prints ranked tags for each.
// A line is the text before the cursor in the note being edited; the
// note's own text is the live text tags are excluded against.
type InputHandler struct {
	engine   *suggest.Engine
	lister   TagLister
	note     string
	text     string
	marker   rune
	limit    int
	maxQuery int
	out      *log.Logger
}

// NewInputHandler handles initialization of the InputHandler with basic parameters
func NewInputHandler(engine *suggest.Engine, lister TagLister, note, text string, marker rune, limit, maxQuery int) *InputHandler {
	return &InputHandler{
		engine:   engine,
		lister:   lister,
		note:     note,
		text:     text,
		marker:   marker,
		limit:    limit,
		maxQuery: maxQuery,
		out:      log.Default(),
	}
}

// Start runs the prompt loop on stdin until EOF or ctx is done.
func (h *InputHandler) Start(ctx context.Context) error {
	h.out.Print("TagServe CLI [BETA]")
	h.out.Printf("type text ending in %c<query> and press Enter to see the suggestions (Ctrl+C to exit):", h.marker)
	h.out.Printf("use %s <prefix> to list known tags", tagsCommand)
	return h.run(ctx, os.Stdin)
}

func (h *InputHandler) run(ctx context.Context, r io.Reader) error {
	reader := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		h.out.Print("> ")
		line, err := reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			h.handleInput(ctx, line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func (h *InputHandler) handleInput(ctx context.Context, line string) {
	if rest, ok := strings.CutPrefix(line, tagsCommand); ok {
		h.listTags(ctx, strings.TrimSpace(rest))
		return
	}

	tc, ok := trigger.Detect(line, h.marker)
	if !ok {
		h.out.Warnf("No trigger at the end of: '%s'", line)
		return
	}
	if utf8.RuneCountInString(tc.Query) > h.maxQuery {
		h.out.Errorf("Query too long: %s", tc.Query)
		return
	}

	start := time.Now()
	results, err := h.engine.Suggest(ctx, suggest.Request{
		Document: h.note,
		Text:     h.text + " " + line,
		Query:    tc.Query,
		Limit:    h.limit,
	})
	if err != nil {
		h.out.Errorf("Suggest failed: %v", err)
		return
	}
	log.Debugf("Took [ %v ] for query '%s'", time.Since(start), tc.Query)

	if len(results) == 0 {
		h.out.Warnf("No suggestions found for query: '%s'", tc.Query)
		return
	}

	h.out.Printf("Found %d suggestions for query '%s':", len(results), tc.Query)
	for i, s := range results {
		h.out.Printf("%2d. %-40s (bucket: %2d, notes: %4d)", i+1, tagStyle.Render(s.Tag), s.Histogram.Top(), s.Histogram.Total())
	}
	h.out.Print(previewStyle.Render(trigger.Apply(line, tc, results[0].Tag)))
}

func (h *InputHandler) listTags(ctx context.Context, prefix string) {
	if h.lister == nil {
		h.out.Error("Tag listing unavailable")
		return
	}
	idx, err := h.lister.Index(ctx)
	if err != nil {
		h.out.Errorf("Building tag index: %v", err)
		return
	}
	counts := idx.WithPrefix(prefix)
	if len(counts) == 0 {
		h.out.Warnf("No tags start with '%s'", prefix)
		return
	}
	if h.limit > 0 && len(counts) > h.limit {
		counts = counts[:h.limit]
	}
	h.out.Printf("Known tags for '%s' (%d of %d):", prefix, len(counts), idx.Len())
	for i, tc := range counts {
		h.out.Printf("%2d. %-40s (notes: %4d)", i+1, tagStyle.Render(tc.Tag), tc.Count)
	}
}
