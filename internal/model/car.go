package model

import "time"

// Car is a catalog entry. JSON attributes (features, specifications,
// restrictions) are stored as-is and never interpreted by the backend.
type Car struct {
	ID                 int64          `json:"id"`
	Name               string         `json:"name"`
	Category           *string        `json:"category"`
	CategoryRU         *string        `json:"category_ru"`
	Price              *int64         `json:"price"`
	Price3PlusDays     *int64         `json:"price_3plus_days"`
	Images             []string       `json:"images"`
	Description        *string        `json:"description"`
	DescriptionRU      *string        `json:"description_ru"`
	Features           []string       `json:"features"`
	FeaturesRU         []string       `json:"features_ru"`
	Specifications     map[string]any `json:"specifications"`
	Available          bool           `json:"available"`
	Rating             float64        `json:"rating"`
	FuelType           *string        `json:"fuel_type"`
	Restrictions       map[string]any `json:"restrictions"`
	AdditionalServices []string       `json:"additional_services"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// DailyRate returns the per-day price for a rental of the given length.
// The discounted rate applies from three days on when it is set; a missing
// price counts as zero.
func (c Car) DailyRate(days int) int64 {
	if days >= 3 && c.Price3PlusDays != nil && *c.Price3PlusDays != 0 {
		return *c.Price3PlusDays
	}
	if c.Price == nil {
		return 0
	}
	return *c.Price
}

type CreateCarRequest struct {
	Name               string         `json:"name"`
	Category           *string        `json:"category"`
	CategoryRU         *string        `json:"category_ru"`
	Price              *int64         `json:"price"`
	Price3PlusDays     *int64         `json:"price_3plus_days"`
	Images             []string       `json:"images"`
	Description        *string        `json:"description"`
	DescriptionRU      *string        `json:"description_ru"`
	Features           []string       `json:"features"`
	FeaturesRU         []string       `json:"features_ru"`
	Specifications     map[string]any `json:"specifications"`
	Available          *bool          `json:"available"`
	Rating             *float64       `json:"rating"`
	FuelType           *string        `json:"fuel_type"`
	Restrictions       map[string]any `json:"restrictions"`
	AdditionalServices []string       `json:"additional_services"`
}

// UpdateCarRequest carries a partial update: nil fields are left untouched.
type UpdateCarRequest struct {
	Name               *string         `json:"name"`
	Category           *string         `json:"category"`
	CategoryRU         *string         `json:"category_ru"`
	Price              *int64          `json:"price"`
	Price3PlusDays     *int64          `json:"price_3plus_days"`
	Images             *[]string       `json:"images"`
	Description        *string         `json:"description"`
	DescriptionRU      *string         `json:"description_ru"`
	Features           *[]string       `json:"features"`
	FeaturesRU         *[]string       `json:"features_ru"`
	Specifications     *map[string]any `json:"specifications"`
	Available          *bool           `json:"available"`
	Rating             *float64        `json:"rating"`
	FuelType           *string         `json:"fuel_type"`
	Restrictions       *map[string]any `json:"restrictions"`
	AdditionalServices *[]string       `json:"additional_services"`
}

type CarMetadata struct {
	MinPrice  *int64   `json:"min_price"`
	MaxPrice  *int64   `json:"max_price"`
	FuelTypes []string `json:"fuel_types"`
	Total     int      `json:"total"`
}
