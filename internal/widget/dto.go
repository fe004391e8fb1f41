package widget

import (
	"strings"

	"github.com/widgetlabs/widget-api/internal"
	"github.com/widgetlabs/widget-api/internal/core/common/sanitize"
)

type CreateWidgetDTO struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Category    string  `json:"category,omitempty"`
}

func (d *CreateWidgetDTO) Validate() error {
	d.Name = sanitize.String(strings.TrimSpace(d.Name))
	d.Description = sanitize.StringPtr(d.Description)
	d.Category = sanitize.String(strings.TrimSpace(d.Category))

	if d.Name == "" || len(d.Name) > 100 {
		return internal.NewValidationError("name must be between 1 and 100 characters", internal.ErrCodeValidationFailed)
	}
	if d.Price < 0 {
		return internal.NewValidationError("price must not be negative", internal.ErrCodeInvalidPrice)
	}
	if d.Quantity <= 0 {
		return internal.NewValidationError("quantity must be greater than zero", internal.ErrCodeInvalidQuantity)
	}
	return nil
}

// UpdateWidgetDTO is a partial update; nil fields are left untouched.
type UpdateWidgetDTO struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Quantity    *int     `json:"quantity,omitempty"`
	Category    *string  `json:"category,omitempty"`
}

func (d *UpdateWidgetDTO) Validate() error {
	if d.Name != nil {
		trimmed := sanitize.String(strings.TrimSpace(*d.Name))
		d.Name = &trimmed
		if trimmed == "" || len(trimmed) > 100 {
			return internal.NewValidationError("name must be between 1 and 100 characters", internal.ErrCodeValidationFailed)
		}
	}
	d.Description = sanitize.StringPtr(d.Description)
	if d.Category != nil {
		trimmed := sanitize.String(strings.TrimSpace(*d.Category))
		d.Category = &trimmed
	}
	if d.Price != nil && *d.Price < 0 {
		return internal.NewValidationError("price must not be negative", internal.ErrCodeInvalidPrice)
	}
	if d.Quantity != nil && *d.Quantity <= 0 {
		return internal.NewValidationError("quantity must be greater than zero", internal.ErrCodeInvalidQuantity)
	}
	return nil
}

// Empty reports whether the patch carries no fields at all.
func (d *UpdateWidgetDTO) Empty() bool {
	return d.Name == nil && d.Description == nil && d.Price == nil &&
		d.Quantity == nil && d.Category == nil
}

// ListQuery carries pagination and the optional category filter.
type ListQuery struct {
	Skip     int
	Limit    int
	Category string
}

func (q *ListQuery) Validate() error {
	if q.Limit == 0 {
		q.Limit = 10
	}
	if q.Skip < 0 {
		return internal.NewValidationError("skip must not be negative", internal.ErrCodeInvalidPage)
	}
	if q.Limit < 1 || q.Limit > 100 {
		return internal.NewValidationError("limit must be between 1 and 100", internal.ErrCodeInvalidPage)
	}
	q.Category = sanitize.String(strings.TrimSpace(q.Category))
	return nil
}

// CountResponse is the body of the count endpoint.
type CountResponse struct {
	Count int64 `json:"count"`
}
