package dto

import "github.com/oapi-codegen/nullable"

// CreateCategoryRequest is the body of POST /menu/categories. A client-sent id is ignored.
type CreateCategoryRequest struct {
	NamePL   string  `json:"name_pl" validate:"required"`
	NameEN   string  `json:"name_en" validate:"required"`
	ImageURL *string `json:"image_url"`
}

// UpdateCategoryRequest distinguishes absent, null and set fields.
type UpdateCategoryRequest struct {
	NamePL   nullable.Nullable[string] `json:"name_pl"`
	NameEN   nullable.Nullable[string] `json:"name_en"`
	ImageURL nullable.Nullable[string] `json:"image_url"`
}

// CreateItemRequest is the body of POST /menu/items.
type CreateItemRequest struct {
	CategoryID  *int64  `json:"category_id" validate:"required,gt=0"`
	NamePL      string  `json:"name_pl" validate:"required"`
	NameEN      string  `json:"name_en" validate:"required"`
	PriceCents  *int64  `json:"price_cents" validate:"required,gte=0"`
	ImageURL    *string `json:"image_url"`
	IsAvailable *bool   `json:"is_available"`
}

// UpdateItemRequest distinguishes absent, null and set fields.
type UpdateItemRequest struct {
	CategoryID  nullable.Nullable[int64]  `json:"category_id"`
	NamePL      nullable.Nullable[string] `json:"name_pl"`
	NameEN      nullable.Nullable[string] `json:"name_en"`
	PriceCents  nullable.Nullable[int64]  `json:"price_cents"`
	ImageURL    nullable.Nullable[string] `json:"image_url"`
	IsAvailable nullable.Nullable[bool]   `json:"is_available"`
}

// CategoryResponse represents a category as exposed via transport layers.
type CategoryResponse struct {
	ID       int64   `json:"id"`
	NamePL   string  `json:"name_pl"`
	NameEN   string  `json:"name_en"`
	ImageURL *string `json:"image_url"`
}

// ItemResponse represents a menu item as exposed via transport layers.
type ItemResponse struct {
	ID          int64   `json:"id"`
	CategoryID  int64   `json:"category_id"`
	NamePL      string  `json:"name_pl"`
	NameEN      string  `json:"name_en"`
	PriceCents  int64   `json:"price_cents"`
	ImageURL    *string `json:"image_url"`
	IsAvailable bool    `json:"is_available"`
}

// AvailabilityResponse is returned by the block endpoint.
type AvailabilityResponse struct {
	ID          int64 `json:"id"`
	IsAvailable bool  `json:"is_available"`
}
