package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"rotacultural/internal/points/cache"
	pointsmetrics "rotacultural/internal/points/metrics"
	"rotacultural/internal/points/models"
	"rotacultural/internal/points/store/tree"
	dErrors "rotacultural/pkg/domain-errors"
	"rotacultural/pkg/platform/audit"
	"rotacultural/pkg/platform/sentinel"
	"rotacultural/pkg/requestcontext"
)

// Namespace is the backing-store path under which points are kept.
const Namespace = "points"

// DefaultPageSize is used when no page size is configured.
const DefaultPageSize = 10

const (
	opList   = "list"
	opSearch = "search"
	opGet    = "get"
)

var (
	ErrPointIDRequired = dErrors.New(dErrors.CodeBadRequest, "point id is required")
	ErrInvalidLimit    = dErrors.New(dErrors.CodeValidation, "limit must be a positive number")
	ErrPointNotFound   = dErrors.New(dErrors.CodeNotFound, "point not found")
	ErrNotOwner        = dErrors.New(dErrors.CodeForbidden, "only the creator can delete this point")
)

// Tree is the backing store as the registry uses it.
type Tree interface {
	Get(ctx context.Context, path string) (models.Record, error)
	Children(ctx context.Context, path string) (map[string]models.Record, error)
	Set(ctx context.Context, path string, rec models.Record) error
	Delete(ctx context.Context, path string) error
}

// ListParams selects a page of points. Zero values mean "not given": page 0
// is treated as page 1, an empty category disables filtering and a zero
// limit selects normal paging.
type ListParams struct {
	Page     int
	Category string
	Limit    int
}

// Page is one page of a listing.
type Page struct {
	Items      []*models.CulturalPoint
	Page       int
	TotalPages int
	TotalItems int
}

// Service is the point registry. Writes go straight to the backing store and
// then clear the whole read cache; reads are served from the cache while
// their entry is younger than the TTL.
type Service struct {
	tree      Tree
	cache     *cache.Expiring[any]
	validator *models.Validator
	pageSize  int
	logger    *slog.Logger
	metrics   *pointsmetrics.Metrics
	tracer    trace.Tracer
	newID     func() string
	auditor   audit.Emitter
	loads     singleflight.Group
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *pointsmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithAuditor records point creation and owner deletions.
func WithAuditor(auditor audit.Emitter) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithPageSize sets the page size for normal paging. Non-positive values
// are ignored.
func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithIDGenerator replaces the UUID generator, for tests.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// New constructs the registry. The cache is owned by the caller so that it
// can be shared or isolated explicitly.
func New(store Tree, readCache *cache.Expiring[any], validator *models.Validator, opts ...Option) *Service {
	s := &Service{
		tree:      store,
		cache:     readCache,
		validator: validator,
		pageSize:  DefaultPageSize,
		logger:    slog.New(slog.DiscardHandler),
		tracer:    otel.Tracer("rotacultural/points"),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Categories returns the configured point categories.
func (s *Service) Categories() models.Categories {
	return s.validator.Categories()
}

// Create validates raw input and stores it under a fresh id. Validation
// failures are returned unchanged and nothing is written.
func (s *Service) Create(ctx context.Context, raw models.RawInput) (string, error) {
	ctx, span := s.tracer.Start(ctx, "points.Create")
	defer span.End()

	point, err := models.FromRawInput(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "rejected cultural point", "error", err)
		return "", spanError(span, err)
	}
	if err := s.validator.Validate(point); err != nil {
		s.logger.WarnContext(ctx, "rejected cultural point", "error", err)
		return "", spanError(span, err)
	}

	id := s.newID()
	span.SetAttributes(attribute.String("point.id", id))
	start := time.Now()
	err = s.tree.Set(ctx, pointPath(id), point.ToRecord())
	s.observeStore("set", start)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create cultural point",
			"point_id", id,
			"error", err,
		)
		return "", spanError(span, dErrors.Wrap(err, dErrors.CodeStore, "failed to save point"))
	}

	s.cache.Clear()
	s.incrementCreated()
	s.logger.InfoContext(ctx, "cultural point created",
		"point_id", id,
		"category", point.Category,
		"created_by", point.CreatedBy,
	)
	s.emitAudit(ctx, audit.ActionPointCreated, point.CreatedBy, id)
	return id, nil
}

// CreateFor is Create on behalf of an authenticated user: userID always
// replaces any createdBy present in raw.
func (s *Service) CreateFor(ctx context.Context, raw models.RawInput, userID string) (string, error) {
	owned := make(models.RawInput, len(raw)+1)
	for k, v := range raw {
		owned[k] = v
	}
	owned[models.FieldCreatedBy] = userID
	return s.Create(ctx, owned)
}

// List returns a page of points sorted by name, optionally filtered by
// category. With a limit, the first limit points are returned as a single
// page and Page is ignored.
func (s *Service) List(ctx context.Context, params ListParams) (*Page, error) {
	ctx, span := s.tracer.Start(ctx, "points.List")
	defer span.End()

	if params.Limit < 0 {
		return nil, spanError(span, ErrInvalidLimit)
	}
	pageNum := max(params.Page, 1)
	key := cacheKey(opList,
		p("page", pageNum),
		p("category", optional(params.Category)),
		p("limit", optional(params.Limit)),
	)

	v, err := s.cached(ctx, opList, key, func(ctx context.Context) (any, error) {
		points, err := s.loadAll(ctx, opList)
		if err != nil {
			return nil, err
		}
		if params.Category != "" {
			points = slices.DeleteFunc(points, func(pt *models.CulturalPoint) bool {
				return pt.Category != params.Category
			})
		}
		sortByName(points)
		return s.paginate(points, pageNum, params.Limit), nil
	})
	if err != nil {
		return nil, spanError(span, err)
	}
	page := v.(*Page)
	return &Page{
		Items:      clonePoints(page.Items),
		Page:       page.Page,
		TotalPages: page.TotalPages,
		TotalItems: page.TotalItems,
	}, nil
}

// Search returns the points whose name, description or category contains
// term, ignoring case, sorted by name.
func (s *Service) Search(ctx context.Context, term string) ([]*models.CulturalPoint, error) {
	ctx, span := s.tracer.Start(ctx, "points.Search")
	defer span.End()

	key := cacheKey(opSearch, p("term", term))
	v, err := s.cached(ctx, opSearch, key, func(ctx context.Context) (any, error) {
		points, err := s.loadAll(ctx, opSearch)
		if err != nil {
			return nil, err
		}
		needle := strings.ToLower(term)
		points = slices.DeleteFunc(points, func(pt *models.CulturalPoint) bool {
			return !matches(pt, needle)
		})
		sortByName(points)
		return points, nil
	})
	if err != nil {
		return nil, spanError(span, err)
	}
	return clonePoints(v.([]*models.CulturalPoint)), nil
}

// GetByID returns the point stored under id, or nil when there is none.
// Absent results are not cached.
func (s *Service) GetByID(ctx context.Context, id string) (*models.CulturalPoint, error) {
	ctx, span := s.tracer.Start(ctx, "points.GetByID", trace.WithAttributes(attribute.String("point.id", id)))
	defer span.End()

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, spanError(span, ErrPointIDRequired)
	}
	key := cacheKey(opGet, p("id", id))
	v, err := s.cached(ctx, opGet, key, func(ctx context.Context) (any, error) {
		point, err := s.fetch(ctx, id)
		if err != nil || point == nil {
			return nil, err
		}
		return point, nil
	})
	if err != nil {
		return nil, spanError(span, err)
	}
	if v == nil {
		return nil, nil
	}
	point := *v.(*models.CulturalPoint)
	return &point, nil
}

// Delete removes the point stored under id. Deleting an id that does not
// exist is not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "points.Delete", trace.WithAttributes(attribute.String("point.id", id)))
	defer span.End()

	id = strings.TrimSpace(id)
	if id == "" {
		return spanError(span, ErrPointIDRequired)
	}
	start := time.Now()
	err := s.tree.Delete(ctx, pointPath(id))
	s.observeStore("delete", start)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to delete cultural point",
			"point_id", id,
			"error", err,
		)
		return spanError(span, dErrors.Wrap(err, dErrors.CodeStore, "failed to delete point"))
	}

	s.cache.Clear()
	s.incrementDeleted()
	s.logger.InfoContext(ctx, "cultural point deleted", "point_id", id)
	return nil
}

// DeleteOwned deletes the point only when userID created it. Ownership is
// checked against the backing store, not the cache.
func (s *Service) DeleteOwned(ctx context.Context, id, userID string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrPointIDRequired
	}
	point, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if point == nil {
		return ErrPointNotFound
	}
	if !point.OwnedBy(userID) {
		s.logger.WarnContext(ctx, "delete refused for non-owner",
			"point_id", id,
			"user_id", userID,
		)
		return ErrNotOwner
	}
	if err := s.Delete(ctx, id); err != nil {
		return err
	}
	s.emitAudit(ctx, audit.ActionPointDeleted, userID, id)
	return nil
}

// emitAudit is best effort: a lost audit event never fails the write.
func (s *Service) emitAudit(ctx context.Context, action audit.Action, userID, pointID string) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Action:    action,
		UserID:    userID,
		Subject:   pointID,
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", string(action),
			"point_id", pointID,
			"error", err,
		)
	}
}

// cached serves key from the cache or runs load, coalescing concurrent loads
// of the same key. A nil result is returned but not cached.
//
// Loads are shared only within one cache generation, so a read that starts
// after a write never joins a load that began before it. The shared load is
// detached from the caller's cancellation; each caller stops waiting when its
// own context ends.
func (s *Service) cached(ctx context.Context, op, key string, load func(context.Context) (any, error)) (any, error) {
	generation := s.cache.Generation()
	if v, ok := s.cache.Get(key); ok {
		s.recordCacheHit(op)
		return v, nil
	}
	s.recordCacheMiss(op)

	loadCtx := context.WithoutCancel(ctx)
	flight := s.loads.DoChan(key+"#"+strconv.FormatUint(generation, 10), func() (any, error) {
		v, err := load(loadCtx)
		if err != nil || v == nil {
			return v, err
		}
		s.cache.SetIfCurrent(key, v, generation)
		return v, nil
	})
	select {
	case res := <-flight:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fetch reads one point from the store. A missing record yields nil, nil.
func (s *Service) fetch(ctx context.Context, id string) (*models.CulturalPoint, error) {
	start := time.Now()
	rec, err := s.tree.Get(ctx, pointPath(id))
	s.observeStore("get", start)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load cultural point",
			"point_id", id,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeStore, "failed to load point")
	}
	point, err := models.FromRecord(id, rec)
	if err != nil {
		s.logger.ErrorContext(ctx, "stored cultural point is unreadable",
			"point_id", id,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeStore, "stored point "+id+" is unreadable")
	}
	return point, nil
}

// loadAll reads and decodes the whole namespace. Stored data is not
// re-validated.
func (s *Service) loadAll(ctx context.Context, op string) ([]*models.CulturalPoint, error) {
	start := time.Now()
	records, err := s.tree.Children(ctx, Namespace)
	s.observeStore("children", start)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load cultural points",
			"operation", op,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeStore, "failed to load points")
	}
	points := make([]*models.CulturalPoint, 0, len(records))
	for id, rec := range records {
		point, err := models.FromRecord(id, rec)
		if err != nil {
			s.logger.ErrorContext(ctx, "stored cultural point is unreadable",
				"operation", op,
				"point_id", id,
				"error", err,
			)
			return nil, dErrors.Wrap(err, dErrors.CodeStore, "stored point "+id+" is unreadable")
		}
		points = append(points, point)
	}
	return points, nil
}

// paginate slices sorted points. In limit mode the first limit points form
// the only page. Otherwise TotalPages counts pages over all points given,
// not just the current slice.
func (s *Service) paginate(points []*models.CulturalPoint, pageNum, limit int) *Page {
	total := len(points)
	if limit > 0 {
		return &Page{
			Items:      points[:min(limit, total)],
			Page:       1,
			TotalPages: 1,
			TotalItems: total,
		}
	}
	totalPages := (total + s.pageSize - 1) / s.pageSize
	startIdx := total
	if pageNum-1 < totalPages {
		startIdx = (pageNum - 1) * s.pageSize
	}
	endIdx := min(startIdx+s.pageSize, total)
	return &Page{
		Items:      points[startIdx:endIdx],
		Page:       pageNum,
		TotalPages: totalPages,
		TotalItems: total,
	}
}

func matches(pt *models.CulturalPoint, needle string) bool {
	return strings.Contains(strings.ToLower(pt.Name), needle) ||
		strings.Contains(strings.ToLower(pt.Description), needle) ||
		strings.Contains(strings.ToLower(pt.Category), needle)
}

// sortByName orders by name, then id so that equal names have a stable
// order regardless of how the store enumerated them.
func sortByName(points []*models.CulturalPoint) {
	slices.SortStableFunc(points, func(a, b *models.CulturalPoint) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func clonePoints(points []*models.CulturalPoint) []*models.CulturalPoint {
	out := make([]*models.CulturalPoint, len(points))
	for i, pt := range points {
		c := *pt
		out[i] = &c
	}
	return out
}

func pointPath(id string) string {
	return tree.Join(Namespace, id)
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, dErrors.Message(err))
	return err
}

func (s *Service) observeStore(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveStore(op, start)
	}
}

func (s *Service) recordCacheHit(op string) {
	if s.metrics != nil {
		s.metrics.RecordCacheHit(op)
	}
}

func (s *Service) recordCacheMiss(op string) {
	if s.metrics != nil {
		s.metrics.RecordCacheMiss(op)
	}
}

func (s *Service) incrementCreated() {
	if s.metrics != nil {
		s.metrics.IncrementPointsCreated()
	}
}

func (s *Service) incrementDeleted() {
	if s.metrics != nil {
		s.metrics.IncrementPointsDeleted()
	}
}
