package domain

import "time"

// PromoCode represents a promotional discount code.
type PromoCode struct {
	ID                  string
	Code                string
	Description         string
	DiscountAmount      float64 // fixed discount, 0 when unset
	DiscountPercent     float64 // percentage discount, 0 when unset
	MaxDiscount         float64 // cap on the discount, 0 when unset
	StartDate           time.Time
	EndDate             time.Time
	IsActive            bool
	UsageLimit          int // 0 means unlimited
	CurrentUses         int
	MinTripAmount       float64
	ApplicableTripTypes []TripType
}

// AppliesTo reports whether the code can be used for the given trip type.
func (p *PromoCode) AppliesTo(tripType TripType) bool {
	for _, t := range p.ApplicableTripTypes {
		if t == tripType {
			return true
		}
	}
	return false
}
