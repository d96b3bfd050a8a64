package domain

// Tariff represents the active pricing configuration for a trip type and
// vehicle category.
type Tariff struct {
	ID              string
	BasePrice       float64
	PricePerKm      float64
	PricePerMinute  float64
	MinimumPrice    float64
	SurgeMultiplier float64 // 0 means no surge configured
	ApplyTripType   TripType
	VehicleCategory string
	IsActive        bool
}
