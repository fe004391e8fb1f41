package widget

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/widgetlabs/widget-api/internal/observability"
	"github.com/widgetlabs/widget-api/internal/platform/cache"
)

// cacheKeyPrefix labels cache metrics for this domain.
const cacheKeyPrefix = "widgets:owner"

// Repository is the persistence surface the service depends on.
type Repository interface {
	Create(ctx context.Context, w *Widget) error
	GetByOwnerAndID(ctx context.Context, ownerID, id string) (*Widget, error)
	ListByOwner(ctx context.Context, ownerID, category string, skip, limit int) ([]Widget, error)
	UpdateFields(ctx context.Context, ownerID, id string, fields map[string]interface{}) (int64, error)
	Delete(ctx context.Context, ownerID, id string) (int64, error)
	Count(ctx context.Context, ownerID, category string) (int64, error)
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
}

type ServiceAPI interface {
	Create(ctx context.Context, ownerID string, dto CreateWidgetDTO) (*Widget, error)
	List(ctx context.Context, ownerID string, query ListQuery) ([]Widget, error)
	Count(ctx context.Context, ownerID, category string) (int64, error)
	Get(ctx context.Context, ownerID, id string) (*Widget, error)
	Update(ctx context.Context, ownerID, id string, dto UpdateWidgetDTO) (*Widget, error)
	Delete(ctx context.Context, ownerID, id string) error
	PurgeOwner(ctx context.Context, ownerID string) error
}

// Service implements widget operations with a read-through cache over list
// and count queries. Point lookups always hit the database; a single-row
// read is cheap and caching it would only widen the staleness window.
type Service struct {
	repo    Repository
	cache   *cache.Cache
	metrics *observability.Metrics
}

// NewService builds the service. cache and metrics may be nil; the service
// then runs uncached and unobserved.
func NewService(repo Repository, c *cache.Cache, m *observability.Metrics) *Service {
	return &Service{repo: repo, cache: c, metrics: m}
}

func ownerPrefix(ownerID string) string {
	return fmt.Sprintf("widgets:owner:%s", ownerID)
}

func listKey(ownerID string, query ListQuery) string {
	return fmt.Sprintf("widgets:owner:%s:list:skip=%d:limit=%d:category=%s",
		ownerID, query.Skip, query.Limit, query.Category)
}

func countKey(ownerID, category string) string {
	return fmt.Sprintf("widgets:owner:%s:count:category=%s", ownerID, category)
}

func itemKey(ownerID, id string) string {
	return fmt.Sprintf("widgets:owner:%s:item:%s", ownerID, id)
}

// Create stores a new widget for the owner and invalidates the owner's
// cached queries, which the new row would render stale.
func (s *Service) Create(ctx context.Context, ownerID string, dto CreateWidgetDTO) (*Widget, error) {
	w := &Widget{
		ID:          uuid.NewString(),
		Name:        dto.Name,
		Description: dto.Description,
		Price:       dto.Price,
		Quantity:    dto.Quantity,
		Category:    dto.Category,
		OwnerID:     ownerID,
		CreatedAt:   time.Now().UTC(),
	}

	start := time.Now()
	if err := s.repo.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("create widget: %w", err)
	}
	s.metrics.RecordDBQuery("insert", "widgets", time.Since(start))
	s.metrics.RecordWidgetOperation("create")

	s.invalidateOwner(ctx, ownerID)
	// Warm the item entry after the prefix sweep so the freshest row is the
	// one left behind.
	s.cache.Set(ctx, itemKey(ownerID, w.ID), w, 0)
	return w, nil
}

// List returns one page of the owner's widgets, served from cache when the
// identical query was answered inside the TTL.
func (s *Service) List(ctx context.Context, ownerID string, query ListQuery) ([]Widget, error) {
	key := listKey(ownerID, query)

	var cached []Widget
	if s.cache.GetInto(ctx, key, &cached) {
		s.metrics.RecordCacheHit(cacheKeyPrefix)
		return cached, nil
	}
	s.metrics.RecordCacheMiss(cacheKeyPrefix)

	start := time.Now()
	widgets, err := s.repo.ListByOwner(ctx, ownerID, query.Category, query.Skip, query.Limit)
	if err != nil {
		return nil, fmt.Errorf("list widgets: %w", err)
	}
	s.metrics.RecordDBQuery("find", "widgets", time.Since(start))

	if widgets == nil {
		widgets = []Widget{}
	}
	s.cache.Set(ctx, key, widgets, 0)
	return widgets, nil
}

// Count returns the owner's widget total, optionally narrowed to a category,
// cached under the owner's prefix so writes invalidate it.
func (s *Service) Count(ctx context.Context, ownerID, category string) (int64, error) {
	key := countKey(ownerID, category)

	var cached int64
	if s.cache.GetInto(ctx, key, &cached) {
		s.metrics.RecordCacheHit(cacheKeyPrefix)
		return cached, nil
	}
	s.metrics.RecordCacheMiss(cacheKeyPrefix)

	start := time.Now()
	count, err := s.repo.Count(ctx, ownerID, category)
	if err != nil {
		return 0, fmt.Errorf("count widgets: %w", err)
	}
	s.metrics.RecordDBQuery("count", "widgets", time.Since(start))

	s.cache.Set(ctx, key, count, 0)
	return count, nil
}

// Get fetches a single widget. Uncached.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*Widget, error) {
	start := time.Now()
	w, err := s.repo.GetByOwnerAndID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordDBQuery("find_one", "widgets", time.Since(start))
	return w, nil
}

// Update applies a partial change. An empty patch performs no write and
// returns the current row; a patch that matches no row is a not-found.
func (s *Service) Update(ctx context.Context, ownerID, id string, dto UpdateWidgetDTO) (*Widget, error) {
	if dto.Empty() {
		return s.Get(ctx, ownerID, id)
	}

	fields := map[string]interface{}{}
	if dto.Name != nil {
		fields["name"] = *dto.Name
	}
	if dto.Description != nil {
		fields["description"] = *dto.Description
	}
	if dto.Price != nil {
		fields["price"] = *dto.Price
	}
	if dto.Quantity != nil {
		fields["quantity"] = *dto.Quantity
	}
	if dto.Category != nil {
		fields["category"] = *dto.Category
	}
	fields["updated_at"] = time.Now().UTC()

	start := time.Now()
	modified, err := s.repo.UpdateFields(ctx, ownerID, id, fields)
	if err != nil {
		return nil, fmt.Errorf("update widget: %w", err)
	}
	s.metrics.RecordDBQuery("update", "widgets", time.Since(start))

	if modified == 0 {
		return nil, ErrWidgetNotFound
	}
	s.metrics.RecordWidgetOperation("update")
	s.invalidateOwner(ctx, ownerID)

	return s.Get(ctx, ownerID, id)
}

// Delete removes the widget and invalidates the owner's cached queries.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	start := time.Now()
	deleted, err := s.repo.Delete(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete widget: %w", err)
	}
	s.metrics.RecordDBQuery("delete", "widgets", time.Since(start))

	if deleted == 0 {
		return ErrWidgetNotFound
	}
	s.metrics.RecordWidgetOperation("delete")
	s.invalidateOwner(ctx, ownerID)
	return nil
}

// PurgeOwner removes every widget the owner holds. Used when an account is
// deleted.
func (s *Service) PurgeOwner(ctx context.Context, ownerID string) error {
	if _, err := s.repo.DeleteByOwner(ctx, ownerID); err != nil {
		return fmt.Errorf("purge widgets: %w", err)
	}
	s.invalidateOwner(ctx, ownerID)
	return nil
}

func (s *Service) invalidateOwner(ctx context.Context, ownerID string) {
	start := time.Now()
	s.cache.DeletePrefix(ctx, ownerPrefix(ownerID))
	s.metrics.RecordCacheOperation("delete_prefix", time.Since(start))
}
