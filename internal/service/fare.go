package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kennyp2233/nilo-back/internal/domain"
	"github.com/kennyp2233/nilo-back/internal/repository"
)

// FareService prices trips and applies promo codes.
type FareService struct {
	tariffRepo repository.TariffRepository
	promoRepo  repository.PromoRepository
}

// NewFareService creates a new FareService.
func NewFareService(tariffRepo repository.TariffRepository, promoRepo repository.PromoRepository) *FareService {
	return &FareService{
		tariffRepo: tariffRepo,
		promoRepo:  promoRepo,
	}
}

// CalculateFare prices a trip against a tariff: base plus per-km and
// per-minute components, floored at the tariff minimum, multiplied by the
// surge multiplier when one is configured.
func CalculateFare(distanceKm float64, durationMin int, tariff *domain.Tariff) float64 {
	fare := tariff.BasePrice + distanceKm*tariff.PricePerKm + float64(durationMin)*tariff.PricePerMinute

	if fare < tariff.MinimumPrice {
		fare = tariff.MinimumPrice
	}

	if tariff.SurgeMultiplier > 0 {
		fare *= tariff.SurgeMultiplier
	}

	return roundMoney(fare)
}

// IntercityFare prices an intercity booking: the published price per seat
// times the seats booked. The price is supplied by the offer, never computed.
func IntercityFare(pricePerSeat float64, seats int) float64 {
	return roundMoney(pricePerSeat * float64(seats))
}

// EstimateFare looks up the active tariff for the trip type and vehicle
// category and prices the trip with it.
func (s *FareService) EstimateFare(ctx context.Context, tripType domain.TripType, vehicleCategory string, distanceKm float64, durationMin int) (float64, *domain.Tariff, error) {
	tariff, err := s.tariffRepo.GetActive(ctx, tripType, vehicleCategory)
	if err != nil {
		return 0, nil, err
	}

	if tariff == nil {
		return 0, nil, ErrNoActiveTariff
	}

	return CalculateFare(distanceKm, durationMin, tariff), tariff, nil
}

// ApplyPromoRequest contains the parameters for applying a promo code.
type ApplyPromoRequest struct {
	Code     string
	Amount   float64
	TripType domain.TripType
}

// ApplyPromoResponse contains the result of applying a promo code.
type ApplyPromoResponse struct {
	PromoID     string
	Code        string
	Discount    float64
	FinalAmount float64
}

// ApplyPromo validates a promo code against the trip and computes the
// discounted amount. The usage counter is bumped with a conditional update so
// concurrent applications can never exceed the usage limit.
func (s *FareService) ApplyPromo(ctx context.Context, req ApplyPromoRequest) (*ApplyPromoResponse, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	promo, err := s.promoRepo.GetByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}

	if !promo.IsActive {
		return nil, ErrPromoNotActive
	}

	now := time.Now()
	if now.Before(promo.StartDate) || now.After(promo.EndDate) {
		return nil, ErrPromoExpired
	}

	if !promo.AppliesTo(req.TripType) {
		return nil, ErrPromoNotApplicable
	}

	if req.Amount < promo.MinTripAmount {
		return nil, ErrPromoMinAmount
	}

	discount := promoDiscount(promo, req.Amount)

	// The conditional increment is the eligibility check for the usage limit:
	// zero rows updated means concurrent applications exhausted it first.
	incremented, err := s.promoRepo.IncrementUses(ctx, promo.ID)
	if err != nil {
		return nil, err
	}

	if !incremented {
		return nil, ErrPromoExhausted
	}

	return &ApplyPromoResponse{
		PromoID:     promo.ID,
		Code:        promo.Code,
		Discount:    discount,
		FinalAmount: roundMoney(req.Amount - discount),
	}, nil
}

// promoDiscount computes the discount for an amount: the larger of the fixed
// and percentage discounts, capped at maxDiscount and at the amount itself.
func promoDiscount(promo *domain.PromoCode, amount float64) float64 {
	discount := promo.DiscountAmount

	if percent := amount * promo.DiscountPercent / 100; percent > discount {
		discount = percent
	}

	if promo.MaxDiscount > 0 && discount > promo.MaxDiscount {
		discount = promo.MaxDiscount
	}

	if discount > amount {
		discount = amount
	}

	return roundMoney(discount)
}

// CreatePromoRequest contains the parameters for creating a promo code.
type CreatePromoRequest struct {
	Code                string
	Description         string
	DiscountAmount      float64
	DiscountPercent     float64
	MaxDiscount         float64
	StartDate           time.Time
	EndDate             time.Time
	UsageLimit          int
	MinTripAmount       float64
	ApplicableTripTypes []domain.TripType
}

// CreatePromoCode registers a new promo code. The code must be unique.
func (s *FareService) CreatePromoCode(ctx context.Context, req CreatePromoRequest) (*domain.PromoCode, error) {
	if req.Code == "" || (req.DiscountAmount <= 0 && req.DiscountPercent <= 0) {
		return nil, ErrInvalidPromoCode
	}

	promo := &domain.PromoCode{
		ID:                  uuid.New().String(),
		Code:                req.Code,
		Description:         req.Description,
		DiscountAmount:      req.DiscountAmount,
		DiscountPercent:     req.DiscountPercent,
		MaxDiscount:         req.MaxDiscount,
		StartDate:           req.StartDate,
		EndDate:             req.EndDate,
		IsActive:            true,
		UsageLimit:          req.UsageLimit,
		MinTripAmount:       req.MinTripAmount,
		ApplicableTripTypes: req.ApplicableTripTypes,
	}

	if len(promo.ApplicableTripTypes) == 0 {
		promo.ApplicableTripTypes = []domain.TripType{domain.TripTypeOnDemand, domain.TripTypeIntercity}
	}

	if err := s.promoRepo.Create(ctx, promo); err != nil {
		return nil, err
	}

	return promo, nil
}

// ListPromoCodes retrieves all promo codes.
func (s *FareService) ListPromoCodes(ctx context.Context) ([]*domain.PromoCode, error) {
	return s.promoRepo.List(ctx)
}

// roundMoney rounds to 2 decimal places, half away from zero.
func roundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}
