package models

import (
	"errors"
	"strings"
	"time"
)

const (
	TableRestaurants          = "restaurants"
	TableCategories           = "categories"
	TableDishes               = "dishes"
	TableDishCategories       = "dish_categories"
	TableComplementGroups     = "complement_groups"
	TableDishComplementGroups = "dish_complement_groups"
	TableComplements          = "complements"
)

var ErrMissingKey = errors.New("row is missing a key column")

type Restaurant struct {
	ID                    string     `gorm:"primaryKey;type:uuid" json:"id"`
	OrganizationID        *string    `gorm:"type:uuid;index" json:"organization_id,omitempty"`
	Slug                  *string    `gorm:"uniqueIndex" json:"slug,omitempty"`
	Name                  string     `gorm:"not null" json:"name"`
	Description           *string    `gorm:"type:text" json:"description,omitempty"`
	WelcomeMessage        *string    `gorm:"type:text" json:"welcome_message,omitempty"`
	Image                 *string    `json:"image,omitempty"`
	WaiterCallEnabled     *bool      `json:"waiter_call_enabled,omitempty"`
	WhatsappEnabled       *bool      `json:"whatsapp_enabled,omitempty"`
	WhatsappPhone         *string    `gorm:"size:32" json:"whatsapp_phone,omitempty"`
	WhatsappCustomMessage *string    `gorm:"type:text" json:"whatsapp_custom_message,omitempty"`
	CreatedAt             *time.Time `gorm:"autoCreateTime" json:"created_at,omitempty"`
	UpdatedAt             *time.Time `gorm:"autoUpdateTime" json:"updated_at,omitempty"`
}

func (Restaurant) TableName() string { return TableRestaurants }

func (r Restaurant) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrMissingKey
	}
	return nil
}

// RestaurantRef is the id/slug projection used for route enumeration.
type RestaurantRef struct {
	ID   string  `json:"id"`
	Slug *string `json:"slug,omitempty"`
}

func (r RestaurantRef) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrMissingKey
	}
	return nil
}

type Category struct {
	ID           string  `gorm:"primaryKey;type:uuid" json:"id"`
	RestaurantID string  `gorm:"type:uuid;index;not null" json:"restaurant_id"`
	Name         string  `gorm:"not null" json:"name"`
	Image        *string `json:"image,omitempty"`
	Position     *int    `json:"position,omitempty"`
}

func (Category) TableName() string { return TableCategories }

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrMissingKey
	}
	return nil
}

type Dish struct {
	ID           string      `gorm:"primaryKey;type:uuid" json:"id"`
	RestaurantID string      `gorm:"type:uuid;index;not null" json:"restaurant_id"`
	CategoryID   *string     `gorm:"type:uuid" json:"category_id,omitempty"`
	Name         string      `json:"name"`
	Description  *string     `gorm:"type:text" json:"description,omitempty"`
	Price        *int64      `json:"price,omitempty"`
	Image        *string     `json:"image,omitempty"`
	IsAvailable  *bool       `json:"is_available,omitempty"`
	IsFeatured   *bool       `json:"is_featured,omitempty"`
	Tags         StringArray `gorm:"type:text[]" json:"tags,omitempty"`
	Ingredients  *string     `gorm:"type:text" json:"ingredients,omitempty"`
	Allergens    *string     `gorm:"type:text" json:"allergens,omitempty"`
	Portion      *string     `json:"portion,omitempty"`
}

func (Dish) TableName() string { return TableDishes }

func (d Dish) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return ErrMissingKey
	}
	return nil
}

// Available treats an unset flag as available.
func (d Dish) Available() bool { return d.IsAvailable == nil || *d.IsAvailable }

func (d Dish) Featured() bool { return d.IsFeatured != nil && *d.IsFeatured }

type DishCategory struct {
	DishID     string `gorm:"primaryKey;type:uuid" json:"dish_id"`
	CategoryID string `gorm:"primaryKey;type:uuid" json:"category_id"`
	Position   *int   `json:"position,omitempty"`
}

func (DishCategory) TableName() string { return TableDishCategories }

func (dc DishCategory) Validate() error {
	if strings.TrimSpace(dc.DishID) == "" || strings.TrimSpace(dc.CategoryID) == "" {
		return ErrMissingKey
	}
	return nil
}

type ComplementGroup struct {
	ID            string  `gorm:"primaryKey;type:uuid" json:"id"`
	RestaurantID  string  `gorm:"type:uuid;index;not null" json:"restaurant_id"`
	Title         string  `gorm:"not null" json:"title"`
	Description   *string `gorm:"type:text" json:"description,omitempty"`
	Required      *bool   `json:"required,omitempty"`
	MaxSelections *int    `json:"max_selections,omitempty"`
}

func (ComplementGroup) TableName() string { return TableComplementGroups }

func (g ComplementGroup) Validate() error {
	if strings.TrimSpace(g.ID) == "" {
		return ErrMissingKey
	}
	return nil
}

type DishComplementGroup struct {
	DishID            string `gorm:"primaryKey;type:uuid" json:"dish_id"`
	ComplementGroupID string `gorm:"primaryKey;type:uuid" json:"complement_group_id"`
	Position          *int   `json:"position,omitempty"`
}

func (DishComplementGroup) TableName() string { return TableDishComplementGroups }

func (dg DishComplementGroup) Validate() error {
	if strings.TrimSpace(dg.DishID) == "" || strings.TrimSpace(dg.ComplementGroupID) == "" {
		return ErrMissingKey
	}
	return nil
}

type Complement struct {
	ID          string  `gorm:"primaryKey;type:uuid" json:"id"`
	GroupID     string  `gorm:"type:uuid;index;not null" json:"group_id"`
	Name        string  `gorm:"not null" json:"name"`
	Description *string `gorm:"type:text" json:"description,omitempty"`
	Price       *int64  `json:"price,omitempty"`
	Image       *string `json:"image,omitempty"`
	Ingredients *string `gorm:"type:text" json:"ingredients,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
	Position    *int    `json:"position,omitempty"`
}

func (Complement) TableName() string { return TableComplements }

func (c Complement) Validate() error {
	if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.GroupID) == "" {
		return ErrMissingKey
	}
	return nil
}

// Active treats an unset flag as active.
func (c Complement) Active() bool { return c.IsActive == nil || *c.IsActive }

// NewSlice returns a pointer to an empty slice of the record type stored in
// table, for drivers that scan into typed rows.
func NewSlice(table string) (interface{}, bool) {
	switch table {
	case TableRestaurants:
		return &[]Restaurant{}, true
	case TableCategories:
		return &[]Category{}, true
	case TableDishes:
		return &[]Dish{}, true
	case TableDishCategories:
		return &[]DishCategory{}, true
	case TableComplementGroups:
		return &[]ComplementGroup{}, true
	case TableDishComplementGroups:
		return &[]DishComplementGroup{}, true
	case TableComplements:
		return &[]Complement{}, true
	}
	return nil, false
}
