package slides

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hjyouh/books/backend/internal/metrics"
	"github.com/hjyouh/books/backend/internal/serviceerr"
	"go.uber.org/zap"
)

var (
	errMissingStore      = errors.New("store is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew    = "slides.service.new"
	opRefresh       = "slides.refresh"
	opActivate      = "slides.activate"
	opDeactivate    = "slides.deactivate"
	opMoveUp        = "slides.move_up"
	opMoveDown      = "slides.move_down"
	opCreate        = "slides.create"
	opUpdateContent = "slides.update_content"
	opDelete        = "slides.delete"
	opPersist       = "slides.persist"
	fieldSlideID    = "slide_id"
	fieldAction     = "action"
)

// SlideEvent announces that the slide list changed.
type SlideEvent struct {
	Action    Action
	SlideIDs  []string
	Timestamp time.Time
}

// Notifier receives slide events after local state changed.
type Notifier interface {
	PublishSlideEvent(event SlideEvent)
}

type ServiceConfig struct {
	Store            Store
	Clock            func() time.Time
	IDProvider       IDProvider
	Logger           *zap.Logger
	Grace            time.Duration
	Notifier         Notifier
	WriteConcurrency int
}

// Service owns the current slide board and persists its changes.
type Service struct {
	store            Store
	clock            func() time.Time
	idProvider       IDProvider
	logger           *zap.Logger
	grace            time.Duration
	notifier         Notifier
	writeConcurrency int

	mu    sync.Mutex
	board *Board
	stale atomic.Bool

	// inflight holds the changes of writes that have not finished, keyed
	// by issue order.
	writesMu sync.Mutex
	writeSeq uint64
	inflight map[uint64][]SlideChange
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, serviceerr.New(opServiceNew, "missing_store", errMissingStore)
	}
	if cfg.IDProvider == nil {
		return nil, serviceerr.New(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	grace := cfg.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}

	return &Service{
		store:            cfg.Store,
		clock:            clock,
		idProvider:       cfg.IDProvider,
		logger:           logger,
		grace:            grace,
		notifier:         cfg.Notifier,
		writeConcurrency: cfg.WriteConcurrency,
	}, nil
}

// Refresh reloads every slide, switches off expired ON slides and replaces
// the board. Expiry writes run in the background; a failed write is logged
// and does not undo the in-memory result.
func (s *Service) Refresh(ctx context.Context) ([]Slide, *Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Service) refreshLocked(ctx context.Context) ([]Slide, *Pending, error) {
	records, err := s.store.ListSlides(ctx)
	if err != nil {
		s.logError(opRefresh, "query_failed", err)
		return nil, nil, serviceerr.New(opRefresh, "query_failed", err)
	}

	// The store may not reflect writes still in flight. Lay them over the
	// listing and keep the board stale until they finish.
	outstanding := s.overlayInflight(records)

	now := s.now()
	normalized := Normalize(records, now, s.grace)
	s.board = NewBoard(normalized.Slides)
	s.stale.Store(outstanding)

	if len(normalized.Expired) == 0 {
		return s.board.Slides(), completedPending(), nil
	}

	changes := make([]SlideChange, 0, len(normalized.Expired))
	expiredIDs := make([]string, 0, len(normalized.Expired))
	for _, slide := range normalized.Expired {
		changes = append(changes, expiryChange(slide))
		expiredIDs = append(expiredIDs, slide.ID)
		s.logger.Info("slide posting period ended",
			zap.String(fieldSlideID, slide.ID),
			zap.String("slide_type", string(slide.Type)))
	}
	metrics.SlidesExpiredTotal.Add(float64(len(changes)))

	pending := s.persist(ctx, changes, func(change SlideChange, writeErr error) {
		metrics.SlideWriteFailuresTotal.WithLabelValues(string(ActionExpire)).Inc()
		s.logError(opPersist, "expiry_write_failed", writeErr,
			zap.String(fieldSlideID, change.ID),
			zap.String(fieldAction, string(ActionExpire)))
	})
	s.publish(ActionExpire, expiredIDs, now)

	return s.board.Slides(), pending, nil
}

// Active returns the ON slides of one type in display order.
func (s *Service) Active(ctx context.Context, slideType SlideType) ([]Slide, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, _, err := s.refreshLocked(ctx); err != nil {
		return nil, err
	}
	return s.board.Partition(slideType, true), nil
}

// Activate switches a slide on at the back of its ON partition.
func (s *Service) Activate(ctx context.Context, id string) ([]Slide, *Pending, error) {
	return s.apply(ctx, opActivate, id, (*Board).Activate)
}

// Deactivate switches a slide off at the back of its OFF partition.
func (s *Service) Deactivate(ctx context.Context, id string) ([]Slide, *Pending, error) {
	return s.apply(ctx, opDeactivate, id, (*Board).Deactivate)
}

// MoveUp moves an ON slide one position forward.
func (s *Service) MoveUp(ctx context.Context, id string) ([]Slide, *Pending, error) {
	return s.apply(ctx, opMoveUp, id, (*Board).MoveUp)
}

// MoveDown moves an ON slide one position backward.
func (s *Service) MoveDown(ctx context.Context, id string) ([]Slide, *Pending, error) {
	return s.apply(ctx, opMoveDown, id, (*Board).MoveDown)
}

type boardOperation func(board *Board, id string, now time.Time) (Mutation, error)

func (s *Service) apply(ctx context.Context, operation string, rawID string, op boardOperation) ([]Slide, *Pending, error) {
	id, err := NewSlideID(rawID)
	if err != nil {
		return nil, nil, serviceerr.New(operation, "invalid_slide_id", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureBoardLocked(ctx); err != nil {
		return nil, nil, err
	}

	now := s.now()
	mutation, err := op(s.board, id, now)
	if err != nil {
		return nil, nil, serviceerr.New(operation, rejectionReason(err), err)
	}
	if mutation.Empty() {
		return s.board.Slides(), completedPending(), nil
	}

	metrics.SlideActionsTotal.WithLabelValues(string(mutation.Action)).Inc()
	pending := s.persist(ctx, mutation.Changes, func(change SlideChange, writeErr error) {
		s.stale.Store(true)
		metrics.SlideWriteFailuresTotal.WithLabelValues(string(mutation.Action)).Inc()
		s.logError(opPersist, "write_failed", writeErr,
			zap.String(fieldSlideID, change.ID),
			zap.String(fieldAction, string(mutation.Action)))
	})

	changedIDs := make([]string, 0, len(mutation.Changes))
	for _, change := range mutation.Changes {
		changedIDs = append(changedIDs, change.ID)
	}
	s.publish(mutation.Action, changedIDs, now)

	return s.board.Slides(), pending, nil
}

// Create stores a new slide at the back of the partition it lands in.
func (s *Service) Create(ctx context.Context, input SlideInput) (Slide, error) {
	slideType, err := ParseSlideType(string(input.Type))
	if err != nil {
		return Slide{}, serviceerr.New(opCreate, "invalid_slide_type", err)
	}

	now := s.now()
	start, end := ParseInstant(input.PostingStart), ParseInstant(input.PostingEnd)
	if input.IsActive && EndedBefore(end, now.UnixMilli()) {
		return Slide{}, serviceerr.New(opCreate, "period_expired", ErrPeriodExpired)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err)
		return Slide{}, serviceerr.New(opCreate, "id_generation_failed", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureBoardLocked(ctx); err != nil {
		return Slide{}, err
	}

	slide := Slide{
		ID:        id,
		Type:      slideType,
		IsActive:  input.IsActive,
		Order:     s.board.NextOrder(slideType, input.IsActive, ""),
		CreatedAt: now,
		UpdatedAt: now,
	}
	slide.applyContent(input.Content)
	slide.PostingStart = timePointer(start)
	slide.PostingEnd = timePointer(end)

	storedID, err := s.store.CreateSlide(ctx, slide)
	if err != nil {
		s.logError(opCreate, "insert_failed", err, zap.String(fieldSlideID, id))
		return Slide{}, serviceerr.New(opCreate, "insert_failed", err)
	}
	slide.ID = storedID
	s.board.Add(slide)
	s.publish(ActionCreate, []string{slide.ID}, now)

	return slide, nil
}

// UpdateContent replaces the display payload and posting window of a slide.
// Type, state and order are left alone.
func (s *Service) UpdateContent(ctx context.Context, rawID string, input SlideInput) (Slide, error) {
	id, err := NewSlideID(rawID)
	if err != nil {
		return Slide{}, serviceerr.New(opUpdateContent, "invalid_slide_id", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureBoardLocked(ctx); err != nil {
		return Slide{}, err
	}
	current, ok := s.board.Find(id)
	if !ok {
		return Slide{}, serviceerr.New(opUpdateContent, "not_found", fmt.Errorf("%w: %s", ErrSlideNotFound, id))
	}

	now := s.now()
	content := input.Content
	change := SlideChange{
		ID:           id,
		UpdatedAt:    now,
		Content:      &content,
		ClearWindow:  true,
		PostingStart: timePointer(ParseInstant(input.PostingStart)),
		PostingEnd:   timePointer(ParseInstant(input.PostingEnd)),
	}
	if err := s.store.UpdateSlide(ctx, change); err != nil {
		s.stale.Store(true)
		s.logError(opUpdateContent, "update_failed", err, zap.String(fieldSlideID, id))
		return Slide{}, serviceerr.New(opUpdateContent, "update_failed", err)
	}

	current.apply(change)
	s.board.Add(current)
	s.publish(ActionUpdate, []string{id}, now)

	return current, nil
}

// Delete removes a slide from the store and the board.
func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := NewSlideID(rawID)
	if err != nil {
		return serviceerr.New(opDelete, "invalid_slide_id", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.DeleteSlide(ctx, id); err != nil {
		if errors.Is(err, ErrSlideNotFound) {
			return serviceerr.New(opDelete, "not_found", err)
		}
		s.logError(opDelete, "delete_failed", err, zap.String(fieldSlideID, id))
		return serviceerr.New(opDelete, "delete_failed", err)
	}
	if s.board != nil {
		s.board.Remove(id)
	}
	s.publish(ActionDelete, []string{id}, s.now())
	return nil
}

// Stale reports whether the board must be re-read before the next action:
// a write failed, or the board was loaded while writes were still in flight.
func (s *Service) Stale() bool {
	return s.stale.Load()
}

// persist starts the writes for changes and keeps them registered as in
// flight until the last one finishes.
func (s *Service) persist(ctx context.Context, changes []SlideChange, onFailure func(SlideChange, error)) *Pending {
	s.writesMu.Lock()
	s.writeSeq++
	key := s.writeSeq
	if s.inflight == nil {
		s.inflight = make(map[uint64][]SlideChange)
	}
	s.inflight[key] = changes
	s.writesMu.Unlock()

	return startWrites(ctx, s.store, changes, s.writeConcurrency, onFailure, func() {
		s.writesMu.Lock()
		delete(s.inflight, key)
		s.writesMu.Unlock()
	})
}

// overlayInflight applies unfinished writes to records in issue order and
// reports whether any were outstanding.
func (s *Service) overlayInflight(records []Slide) bool {
	s.writesMu.Lock()
	defer s.writesMu.Unlock()
	if len(s.inflight) == 0 {
		return false
	}

	index := make(map[string]int, len(records))
	for i, record := range records {
		index[record.ID] = i
	}
	for _, key := range slices.Sorted(maps.Keys(s.inflight)) {
		for _, change := range s.inflight[key] {
			if i, ok := index[change.ID]; ok {
				records[i].apply(change)
			}
		}
	}
	return true
}

func (s *Service) ensureBoardLocked(ctx context.Context) error {
	if s.board != nil && !s.stale.Load() {
		return nil
	}
	_, _, err := s.refreshLocked(ctx)
	return err
}

func (s *Service) publish(action Action, ids []string, now time.Time) {
	if s.notifier == nil {
		return
	}
	s.notifier.PublishSlideEvent(SlideEvent{Action: action, SlideIDs: ids, Timestamp: now})
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("slides service error", attrs...)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrSlideNotFound):
		return "not_found"
	case errors.Is(err, ErrPeriodExpired):
		return "period_expired"
	case errors.Is(err, ErrSlideAlreadyActive), errors.Is(err, ErrSlideAlreadyInactive), errors.Is(err, ErrSlideNotActive):
		return "invalid_transition"
	default:
		return "rejected"
	}
}

func timePointer(bound Bound) *time.Time {
	instant, ok := bound.Time()
	if !ok {
		return nil
	}
	return &instant
}
