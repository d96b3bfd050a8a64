package domain

// VerificationStatus represents a driver's document verification state.
type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "PENDING"
	VerificationStatusVerified VerificationStatus = "VERIFIED"
	VerificationStatusRejected VerificationStatus = "REJECTED"
)

// Driver represents a driver in the system, linked 1:1 to a user.
// IsAvailable flips false exactly once per successful trip acceptance and is
// only restored through the explicit availability operation.
type Driver struct {
	ID                 string
	UserID             string
	FirstName          string
	LastName           string
	Phone              string
	IsAvailable        bool
	VerificationStatus VerificationStatus
	CurrentLat         float64
	CurrentLng         float64
}

// Vehicle represents the vehicle registered to a driver.
type Vehicle struct {
	ID       string
	DriverID string
	Plate    string
	Brand    string
	Model    string
	Category string
}
