// Package widget owns the widget catalog: per-owner CRUD with pagination,
// category filtering, and read-through caching of list and count queries.
package widget

import (
	"errors"
	"time"
)

// Widget is owner-scoped inventory. Every read and write is filtered by the
// owner taken from the authenticated identity, never from the request body.
type Widget struct {
	ID          string     `json:"id" gorm:"column:id;primaryKey"`
	Name        string     `json:"name" gorm:"column:name"`
	Description *string    `json:"description,omitempty" gorm:"column:description"`
	Price       float64    `json:"price" gorm:"column:price"`
	Quantity    int        `json:"quantity" gorm:"column:quantity"`
	Category    string     `json:"category,omitempty" gorm:"column:category"`
	OwnerID     string     `json:"owner_id" gorm:"column:owner_id;index"`
	CreatedAt   time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" gorm:"column:updated_at"`
}

func (Widget) TableName() string {
	return "widgets"
}

var ErrWidgetNotFound = errors.New("widget not found")
