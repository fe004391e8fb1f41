package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/widgetlabs/widget-api/internal/widget"
)

type WidgetRepository struct {
	db *gorm.DB
}

func NewWidgetRepository(db *gorm.DB) *WidgetRepository {
	return &WidgetRepository{db: db}
}

func (r *WidgetRepository) Create(ctx context.Context, w *widget.Widget) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *WidgetRepository) GetByOwnerAndID(ctx context.Context, ownerID, id string) (*widget.Widget, error) {
	var w widget.Widget
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Take(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, widget.ErrWidgetNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (r *WidgetRepository) ListByOwner(ctx context.Context, ownerID, category string, skip, limit int) ([]widget.Widget, error) {
	query := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var widgets []widget.Widget
	err := query.
		Order("created_at DESC").
		Offset(skip).
		Limit(limit).
		Find(&widgets).Error
	if err != nil {
		return nil, err
	}
	return widgets, nil
}

// UpdateFields applies a partial update scoped to the owner and reports the
// number of rows matched; zero means the widget does not exist for this
// owner.
func (r *WidgetRepository) UpdateFields(ctx context.Context, ownerID, id string, fields map[string]interface{}) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&widget.Widget{}).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Updates(fields)
	return result.RowsAffected, result.Error
}

func (r *WidgetRepository) Delete(ctx context.Context, ownerID, id string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Delete(&widget.Widget{})
	return result.RowsAffected, result.Error
}

func (r *WidgetRepository) Count(ctx context.Context, ownerID, category string) (int64, error) {
	query := r.db.WithContext(ctx).Model(&widget.Widget{}).Where("owner_id = ?", ownerID)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *WidgetRepository) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Delete(&widget.Widget{})
	return result.RowsAffected, result.Error
}
