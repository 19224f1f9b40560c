package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kanvas-io/kanvas/pkg/catalog"
	"github.com/kanvas-io/kanvas/pkg/codec"
	"github.com/kanvas-io/kanvas/pkg/graph"
	"github.com/kanvas-io/kanvas/pkg/otelhelper"
)

const autosaveTimeout = 10 * time.Second

// Builder manages one live editing session per flow. A session owns the
// canonical graph state while the flow is being edited and writes it back to
// the flow service on save.
type Builder struct {
	logger   *slog.Logger
	flows    *Flow
	catalog  *catalog.Catalog
	codec    *codec.Codec
	interval time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewBuilder creates a builder session manager. interval is the autosave
// period for every session it opens.
func NewBuilder(
	logger *slog.Logger,
	flows *Flow,
	cat *catalog.Catalog,
	cdc *codec.Codec,
	interval time.Duration,
) *Builder {
	return &Builder{
		logger:   logger.With("service", "builder"),
		flows:    flows,
		catalog:  cat,
		codec:    cdc,
		interval: interval,
		sessions: make(map[string]*Session),
	}
}

// Open loads the flow's persisted definition into a fresh graph store and
// starts the session's autosave loop. Only one session per flow may be open.
func (b *Builder) Open(ctx context.Context, flowID string) (*Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.sessions[flowID]; ok {
		return nil, ErrSessionBusy
	}

	flow, err := b.flows.FetchByID(ctx, flowID)
	if err != nil {
		return nil, err
	}

	store := graph.NewStore(b.logger, b.catalog.Lookup())
	store.Load(b.codec.Deserialize(flow.Definition))

	session := &Session{
		logger:    b.logger.With("flow_id", flowID),
		flowID:    flowID,
		flows:     b.flows,
		codec:     b.codec,
		store:     store,
		savedHash: b.codec.Hash(b.codec.Deserialize(flow.Definition)),
	}

	session.cron = cron.New()

	_, err = session.cron.AddFunc(fmt.Sprintf("@every %s", b.interval), session.autosave)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule autosave: %w", err)
	}

	session.cron.Start()
	b.sessions[flowID] = session

	b.logger.Info("Builder session opened", "flow_id", flowID)

	return session, nil
}

// Session returns the open session for a flow, if any.
func (b *Builder) Session(flowID string) (*Session, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	session, ok := b.sessions[flowID]

	return session, ok
}

// Close persists any unsaved changes, stops the autosave loop and removes
// the session.
func (b *Builder) Close(ctx context.Context, flowID string) error {
	b.mu.Lock()
	session, ok := b.sessions[flowID]
	delete(b.sessions, flowID)
	b.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	return session.close(ctx)
}

// CloseAll tears down every open session, saving each one. Used on shutdown.
func (b *Builder) CloseAll(ctx context.Context) {
	b.mu.Lock()
	sessions := make([]*Session, 0, len(b.sessions))

	for _, session := range b.sessions {
		sessions = append(sessions, session)
	}

	b.sessions = make(map[string]*Session)
	b.mu.Unlock()

	for _, session := range sessions {
		if err := session.close(ctx); err != nil {
			b.logger.Error("Failed to close builder session",
				"flow_id", session.flowID, "error", err)
		}
	}
}

// Session is one flow's live editing session. All graph mutations go through
// its store; saves serialize the store and hand the result to the flow
// service.
type Session struct {
	logger *slog.Logger
	flowID string
	flows  *Flow
	codec  *codec.Codec
	store  *graph.Store
	cron   *cron.Cron

	mu        sync.Mutex
	savedHash string
	saving    bool
	pending   bool
}

// FlowID returns the flow this session edits.
func (s *Session) FlowID() string {
	return s.flowID
}

// Store returns the session's graph store.
func (s *Session) Store() *graph.Store {
	return s.store
}

// Dirty reports whether the graph has changed since the last successful save.
func (s *Session) Dirty() bool {
	snapshot := s.store.Snapshot()
	hash := s.codec.Hash(s.codec.Serialize(snapshot.Nodes, snapshot.Edges))

	s.mu.Lock()
	defer s.mu.Unlock()

	return hash != s.savedHash
}

// Save persists the current graph if it changed since the last save. A save
// requested while another is in flight is coalesced into one follow-up save.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()

	if s.saving {
		s.pending = true
		s.mu.Unlock()

		return nil
	}

	s.saving = true
	s.mu.Unlock()

	err := s.saveOnce(ctx)

	s.mu.Lock()
	s.saving = false
	rerun := s.pending
	s.pending = false
	s.mu.Unlock()

	if err != nil {
		return err
	}

	if rerun {
		return s.Save(ctx)
	}

	return nil
}

func (s *Session) saveOnce(ctx context.Context) error {
	ctx, span := otelhelper.StartSpan(ctx, tracer, "session.save",
		attribute.String(otelhelper.FlowIDKey, s.flowID))
	defer span.End()

	snapshot := s.store.Snapshot()
	def := s.codec.Serialize(snapshot.Nodes, snapshot.Edges)
	hash := s.codec.Hash(def)

	s.mu.Lock()
	unchanged := hash == s.savedHash
	s.mu.Unlock()

	if unchanged {
		return nil
	}

	if _, err := s.flows.SaveDefinition(ctx, s.flowID, def); err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	s.mu.Lock()
	s.savedHash = hash
	s.mu.Unlock()

	s.logger.Debug("Flow definition saved", "hash", hash)

	return nil
}

// autosave is the cron tick. Ticks that land while a save is in flight are
// skipped rather than queued.
func (s *Session) autosave() {
	s.mu.Lock()
	busy := s.saving
	s.mu.Unlock()

	if busy {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), autosaveTimeout)
	defer cancel()

	if err := s.Save(ctx); err != nil {
		s.logger.Error("Autosave failed", "error", err)
	}
}

func (s *Session) close(ctx context.Context) error {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	if err := s.Save(ctx); err != nil {
		return fmt.Errorf("failed to save on close: %w", err)
	}

	s.logger.Info("Builder session closed")

	return nil
}
