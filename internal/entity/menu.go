package entity

import "github.com/uptrace/bun"

// MenuCategory groups menu items; names are kept in Polish and English.
type MenuCategory struct {
	bun.BaseModel `bun:"table:menu_category"`

	ID       int64   `bun:",pk,autoincrement" json:"id"`
	NamePL   string  `bun:"name_pl,notnull" json:"name_pl"`
	NameEN   string  `bun:"name_en,notnull" json:"name_en"`
	ImageURL *string `bun:"image_url" json:"image_url"`
}

// MenuItem is a sellable dish. Prices are stored in minor currency units.
type MenuItem struct {
	bun.BaseModel `bun:"table:menu_item"`

	ID          int64   `bun:",pk,autoincrement" json:"id"`
	CategoryID  int64   `bun:"category_id,notnull" json:"category_id"`
	NamePL      string  `bun:"name_pl,notnull" json:"name_pl"`
	NameEN      string  `bun:"name_en,notnull" json:"name_en"`
	PriceCents  int64   `bun:"price_cents,notnull" json:"price_cents"`
	ImageURL    *string `bun:"image_url" json:"image_url"`
	IsAvailable bool    `bun:"is_available,notnull" json:"is_available"`
}
