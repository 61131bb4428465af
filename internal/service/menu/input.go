package menu

import (
	"strings"

	"github.com/oapi-codegen/nullable"

	"github.com/Additional-Code/bistro/internal/entity"
	"github.com/Additional-Code/bistro/pkg/errorbank"
)

// CategoryInput carries the fields of a new category.
type CategoryInput struct {
	NamePL   string
	NameEN   string
	ImageURL *string
}

// ItemInput carries the fields of a new item. IsAvailable defaults to true.
type ItemInput struct {
	CategoryID  int64
	NamePL      string
	NameEN      string
	PriceCents  int64
	ImageURL    *string
	IsAvailable *bool
}

// CategoryPatch lists per-field changes. Unspecified fields stay untouched,
// an explicit null clears ImageURL and is rejected for the names.
type CategoryPatch struct {
	NamePL   nullable.Nullable[string]
	NameEN   nullable.Nullable[string]
	ImageURL nullable.Nullable[string]
}

// ItemPatch lists per-field changes with the same rules as CategoryPatch.
type ItemPatch struct {
	CategoryID  nullable.Nullable[int64]
	NamePL      nullable.Nullable[string]
	NameEN      nullable.Nullable[string]
	PriceCents  nullable.Nullable[int64]
	ImageURL    nullable.Nullable[string]
	IsAvailable nullable.Nullable[bool]
}

// violations collects field errors into a single 422.
type violations map[string]any

func (v violations) add(field, msg string) { v[field] = msg }

func (v violations) err() error {
	if len(v) == 0 {
		return nil
	}
	return errorbank.Unprocessable("validation failed", errorbank.WithDetails(v))
}

func requireName(v violations, field, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		v.add(field, "must not be blank")
	}
	return value
}

func (in CategoryInput) validate() (*entity.MenuCategory, error) {
	v := violations{}
	c := &entity.MenuCategory{
		NamePL:   requireName(v, "name_pl", in.NamePL),
		NameEN:   requireName(v, "name_en", in.NameEN),
		ImageURL: in.ImageURL,
	}
	return c, v.err()
}

func (in ItemInput) validate() (*entity.MenuItem, error) {
	v := violations{}
	it := &entity.MenuItem{
		CategoryID:  in.CategoryID,
		NamePL:      requireName(v, "name_pl", in.NamePL),
		NameEN:      requireName(v, "name_en", in.NameEN),
		PriceCents:  in.PriceCents,
		ImageURL:    in.ImageURL,
		IsAvailable: true,
	}
	if in.CategoryID <= 0 {
		v.add("category_id", "must be a positive id")
	}
	if in.PriceCents < 0 {
		v.add("price_cents", "must not be negative")
	}
	if in.IsAvailable != nil {
		it.IsAvailable = *in.IsAvailable
	}
	return it, v.err()
}

// patchName applies a non-nullable string field.
func patchName(v violations, field string, p nullable.Nullable[string], dst *string) {
	if !p.IsSpecified() {
		return
	}
	raw, err := p.Get()
	if err != nil {
		v.add(field, "must not be null")
		return
	}
	if value := requireName(v, field, raw); value != "" {
		*dst = value
	}
}

// patchOptional applies a nullable field; null clears it.
func patchOptional(p nullable.Nullable[string], dst **string) {
	if !p.IsSpecified() {
		return
	}
	value, err := p.Get()
	if err != nil {
		*dst = nil
		return
	}
	*dst = &value
}

func (p CategoryPatch) apply(c *entity.MenuCategory) error {
	v := violations{}
	patchName(v, "name_pl", p.NamePL, &c.NamePL)
	patchName(v, "name_en", p.NameEN, &c.NameEN)
	patchOptional(p.ImageURL, &c.ImageURL)
	return v.err()
}

func (p ItemPatch) apply(it *entity.MenuItem) error {
	v := violations{}
	patchName(v, "name_pl", p.NamePL, &it.NamePL)
	patchName(v, "name_en", p.NameEN, &it.NameEN)
	patchOptional(p.ImageURL, &it.ImageURL)

	if p.CategoryID.IsSpecified() {
		if id, err := p.CategoryID.Get(); err != nil || id <= 0 {
			v.add("category_id", "must be a positive id")
		} else {
			it.CategoryID = id
		}
	}
	if p.PriceCents.IsSpecified() {
		if price, err := p.PriceCents.Get(); err != nil || price < 0 {
			v.add("price_cents", "must be a non-negative integer")
		} else {
			it.PriceCents = price
		}
	}
	if p.IsAvailable.IsSpecified() {
		if available, err := p.IsAvailable.Get(); err != nil {
			v.add("is_available", "must not be null")
		} else {
			it.IsAvailable = available
		}
	}
	return v.err()
}
