package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

type FeeKind string

const (
	FeeKindFixed      FeeKind = "fixed"
	FeeKindPercentage FeeKind = "percentage"
	FeeKindDaily      FeeKind = "daily"
)

// Fee is the pricing rule of an add-on. The set of implementations is closed:
// FixedFee, PercentageFee and DailyFee.
type Fee interface {
	Kind() FeeKind
	// Amount is the raw configured number (rubles, percent or rubles per day).
	Amount() float64
	// Contribution is what the add-on adds to a quote with the given rental
	// cost and day count.
	Contribution(rentalCost int64, days int) int64
	isFee()
}

type FixedFee struct {
	Value float64
}

func (f FixedFee) Kind() FeeKind   { return FeeKindFixed }
func (f FixedFee) Amount() float64 { return f.Value }
func (FixedFee) isFee()            {}

func (f FixedFee) Contribution(_ int64, _ int) int64 {
	return int64(f.Value)
}

type PercentageFee struct {
	Percent float64
}

func (f PercentageFee) Kind() FeeKind   { return FeeKindPercentage }
func (f PercentageFee) Amount() float64 { return f.Percent }
func (PercentageFee) isFee()            {}

// Contribution truncates the configured percent to a whole number first and
// then takes that share of the rental cost with integer division.
func (f PercentageFee) Contribution(rentalCost int64, _ int) int64 {
	return rentalCost * int64(f.Percent) / 100
}

type DailyFee struct {
	PerDay float64
}

func (f DailyFee) Kind() FeeKind   { return FeeKindDaily }
func (f DailyFee) Amount() float64 { return f.PerDay }
func (DailyFee) isFee()            {}

func (f DailyFee) Contribution(_ int64, days int) int64 {
	return int64(f.PerDay) * int64(days)
}

// MaxFeeAmount bounds a configured fee so every contribution stays well
// inside int64.
const MaxFeeAmount = math.MaxInt32

// ParseFee builds the variant for a stored or submitted kind. An empty kind
// means fixed.
func ParseFee(kind string, amount float64) (Fee, error) {
	if math.IsNaN(amount) || amount < 0 {
		return nil, fmt.Errorf("%w: fee must not be negative", ErrInvalidInput)
	}
	if amount > MaxFeeAmount {
		return nil, fmt.Errorf("%w: fee must not exceed %d", ErrInvalidInput, MaxFeeAmount)
	}

	switch FeeKind(strings.ToLower(strings.TrimSpace(kind))) {
	case FeeKindFixed, "":
		return FixedFee{Value: amount}, nil
	case FeeKindPercentage:
		return PercentageFee{Percent: amount}, nil
	case FeeKindDaily:
		return DailyFee{PerDay: amount}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFeeKind, kind)
	}
}

type AdditionalService struct {
	ID          int64
	ServiceID   string
	Label       string
	Description *string
	Fee         Fee
	IconKey     *string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type additionalServiceJSON struct {
	ID          int64     `json:"id"`
	ServiceID   string    `json:"service_id"`
	Label       string    `json:"label"`
	Description *string   `json:"description"`
	Fee         float64   `json:"fee"`
	FeeType     FeeKind   `json:"fee_type"`
	IconKey     *string   `json:"icon_key"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MarshalJSON flattens the fee variant into the fee/fee_type pair clients use.
func (s AdditionalService) MarshalJSON() ([]byte, error) {
	wire := additionalServiceJSON{
		ID:          s.ID,
		ServiceID:   s.ServiceID,
		Label:       s.Label,
		Description: s.Description,
		FeeType:     FeeKindFixed,
		IconKey:     s.IconKey,
		IsActive:    s.IsActive,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	if s.Fee != nil {
		wire.Fee = s.Fee.Amount()
		wire.FeeType = s.Fee.Kind()
	}

	return json.Marshal(wire)
}

type CreateAdditionalServiceRequest struct {
	ServiceID   string   `json:"service_id"`
	Label       string   `json:"label"`
	Description *string  `json:"description"`
	Fee         *float64 `json:"fee"`
	FeeType     string   `json:"fee_type"`
	IconKey     *string  `json:"icon_key"`
	IsActive    *bool    `json:"is_active"`
}

type UpdateAdditionalServiceRequest struct {
	ServiceID   *string  `json:"service_id"`
	Label       *string  `json:"label"`
	Description *string  `json:"description"`
	Fee         *float64 `json:"fee"`
	FeeType     *string  `json:"fee_type"`
	IconKey     *string  `json:"icon_key"`
	IsActive    *bool    `json:"is_active"`
}
