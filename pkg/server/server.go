package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/tagserve/pkg/config"
	"github.com/bastiangx/tagserve/pkg/rank"
	"github.com/bastiangx/tagserve/pkg/suggest"
	"github.com/bastiangx/tagserve/pkg/trigger"
	"github.com/bastiangx/tagserve/pkg/vault"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// TagLister builds the index behind the "tags" action.
type TagLister interface {
	Index(ctx context.Context) (*vault.TagIndex, error)
}

// Server handles the IPC for tag suggestions
type Server struct {
	engine *suggest.Engine
	lister TagLister
	config *config.Config

	dec *msgpack.Decoder
	enc *msgpack.Encoder

	writeMu sync.Mutex

	// guards the in-flight suggest request
	flightMu sync.Mutex
	cancel   context.CancelFunc
	seq      uint64

	wg sync.WaitGroup
}

// NewServer creates a new suggestion server using stdin/stdout for IPC
func NewServer(engine *suggest.Engine, lister TagLister, cfg *config.Config) *Server {
	return NewServerWithIO(engine, lister, cfg, os.Stdin, os.Stdout)
}

// NewServerWithIO creates a server over arbitrary streams.
func NewServerWithIO(engine *suggest.Engine, lister TagLister, cfg *config.Config, r io.Reader, w io.Writer) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Server{
		engine: engine,
		lister: lister,
		config: cfg,
		dec:    msgpack.NewDecoder(r),
		enc:    msgpack.NewEncoder(w),
	}
}

// Start processes requests until the input ends or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	log.Debug("Starting Server.")
	defer s.wg.Wait()

	s.sendResponse(StatusResponse{Status: "ready"})

	for {
		if err := ctx.Err(); err != nil {
			s.abort()
			return nil
		}

		var req Request
		if err := s.dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			log.Errorf("Decoding request: %v", err)
			s.sendError("", "invalid msgpack request", 400)
			return fmt.Errorf("failed to decode request: %w", err)
		}
		s.handleRequest(ctx, req)
	}
}

func (s *Server) handleRequest(ctx context.Context, req Request) {
	switch req.Action {
	case ActionSuggest, "":
		s.handleSuggest(ctx, req)
	case ActionSelect:
		s.handleSelect(req)
	case ActionTags:
		s.handleTags(ctx, req)
	case ActionCancel:
		s.abort()
		s.sendResponse(StatusResponse{ID: req.ID, Status: "cancelled"})
	case ActionHealth:
		s.sendResponse(StatusResponse{ID: req.ID, Status: "ok"})
	default:
		s.sendError(req.ID, fmt.Sprintf("unknown action: %s", req.Action), 400)
	}
}

// handleSuggest validates the request, supersedes any in-flight suggestion
// and ranks in the background so the read loop can see the next request.
func (s *Server) handleSuggest(ctx context.Context, req Request) {
	limit, ok := s.limit(req)
	if !ok {
		return
	}

	span := trigger.Context{}
	if req.Before != "" {
		tc, ok := trigger.Detect(req.Before, s.config.Marker())
		if !ok {
			s.abort()
			s.sendResponse(SuggestResponse{ID: req.ID, Suggestions: []Suggestion{}})
			return
		}
		span = tc
	} else {
		span.Query = req.Query
	}

	if utf8.RuneCountInString(span.Query) > s.config.Server.MaxQuery {
		s.sendError(req.ID, fmt.Sprintf("query exceeds maximum length of %d characters", s.config.Server.MaxQuery), 400)
		return
	}

	reqCtx, seq := s.begin(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		start := time.Now()

		results, err := s.engine.Suggest(reqCtx, suggest.Request{
			Document: req.Document,
			Text:     req.Text,
			Query:    span.Query,
			Limit:    limit,
		})
		if err != nil {
			log.Debugf("Dropped request %s: %v", req.ID, err)
			return
		}

		s.finish(seq, SuggestResponse{
			ID:          req.ID,
			Suggestions: toWire(results),
			Count:       len(results),
			Start:       span.Start,
			End:         span.End,
			TimeTaken:   time.Since(start).Microseconds(),
		})
	}()
}

func (s *Server) handleSelect(req Request) {
	if req.Tag == "" {
		s.sendError(req.ID, "missing 't' parameter", 400)
		return
	}
	s.sendResponse(SelectResponse{ID: req.ID, Text: trigger.Replacement(req.Tag)})
}

// handleTags builds the index in the background so a slow vault walk does
// not hold up the next request.
func (s *Server) handleTags(ctx context.Context, req Request) {
	limit, ok := s.limit(req)
	if !ok {
		return
	}
	if s.lister == nil {
		s.sendError(req.ID, "tag listing unavailable", 500)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		idx, err := s.lister.Index(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Debugf("Dropped request %s: %v", req.ID, err)
				return
			}
			log.Errorf("Building tag index: %v", err)
			s.sendError(req.ID, "failed to build tag index", 500)
			return
		}

		counts := idx.WithPrefix(req.Query)
		if len(counts) > limit {
			counts = counts[:limit]
		}
		entries := make([]TagEntry, len(counts))
		for i, tc := range counts {
			entries[i] = TagEntry{Tag: tc.Tag, Documents: tc.Count}
		}
		s.sendResponse(TagsResponse{ID: req.ID, Tags: entries, Count: len(entries)})
	}()
}

// limit applies the default and rejects values above the configured maximum.
func (s *Server) limit(req Request) (int, bool) {
	limit := req.Limit
	if limit < 1 {
		limit = s.config.Server.DefaultLimit
	}
	if limit > s.config.Server.MaxLimit {
		s.sendError(req.ID, fmt.Sprintf("limit exceeds maximum of %d", s.config.Server.MaxLimit), 400)
		log.Debug("Limit too large in request", "limit", limit)
		return 0, false
	}
	return limit, true
}

// begin cancels the in-flight request and registers a new one.
func (s *Server) begin(parent context.Context) (context.Context, uint64) {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.seq++
	return ctx, s.seq
}

// finish sends resp only if seq is still the latest request.
func (s *Server) finish(seq uint64, resp SuggestResponse) {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()
	if seq != s.seq {
		log.Debugf("Dropped stale response %s", resp.ID)
		return
	}
	s.cancel()
	s.cancel = nil
	s.sendResponse(resp)
}

// abort cancels the in-flight request, if any.
func (s *Server) abort() {
	s.flightMu.Lock()
	defer s.flightMu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
}

func (s *Server) sendResponse(response any) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.enc.Encode(response); err != nil {
		log.Errorf("Encoding response: %v", err)
	}
}

func (s *Server) sendError(id, message string, code int) {
	s.sendResponse(ErrorResponse{ID: id, Error: message, Code: code})
}

func toWire(results []rank.Suggestion) []Suggestion {
	out := make([]Suggestion, len(results))
	for i, r := range results {
		out[i] = Suggestion{
			Tag:       r.Tag,
			Rank:      uint16(min(i+1, 65535)),
			Bucket:    r.Histogram.Top(),
			Documents: r.Histogram.Total(),
		}
	}
	return out
}
