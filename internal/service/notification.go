package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kennyp2233/nilo-back/internal/domain"
)

// Event kinds published through the fan-out hub.
const (
	EventTripStatusChanged = "trip_status_changed"
	EventTripConfirmed     = "trip_confirmed"
	EventTripCancelled     = "trip_cancelled"
	EventDriverLocation    = "driver_location"
	EventNotification      = "notification"
)

// EventPublisher delivers events to currently-subscribed sessions.
// Delivery is best-effort; the caller never awaits confirmation.
type EventPublisher interface {
	PublishTripEvent(tripID, event string, data any)
	PublishUserEvent(userID, event string, data any)
}

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationDriverAssigned NotificationType = "DRIVER_ASSIGNED"
	NotificationTripStarted    NotificationType = "TRIP_STARTED"
	NotificationTripCompleted  NotificationType = "TRIP_COMPLETED"
	NotificationTripCancelled  NotificationType = "TRIP_CANCELLED"
	NotificationPaymentSuccess NotificationType = "PAYMENT_SUCCESS"
)

// Notification is the payload delivered on a user channel.
type Notification struct {
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	TripID    string           `json:"trip_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// NotificationService sends directed notifications to individual users over
// their fan-out channels.
type NotificationService struct {
	events EventPublisher
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(events EventPublisher) *NotificationService {
	return &NotificationService{events: events}
}

// NotifyDriverAssigned tells each passenger their trip has a driver.
func (s *NotificationService) NotifyDriverAssigned(ctx context.Context, trip *domain.Trip, driver *domain.Driver, passengerIDs []string) {
	s.sendToAll(passengerIDs, Notification{
		Type:      NotificationDriverAssigned,
		Title:     "Driver Assigned",
		Message:   fmt.Sprintf("%s %s has accepted your trip", driver.FirstName, driver.LastName),
		TripID:    trip.ID,
		CreatedAt: time.Now(),
	})
}

// NotifyTripStarted tells each passenger the trip is underway.
func (s *NotificationService) NotifyTripStarted(ctx context.Context, trip *domain.Trip, passengerIDs []string) {
	s.sendToAll(passengerIDs, Notification{
		Type:      NotificationTripStarted,
		Title:     "Trip Started",
		Message:   "Your trip has started",
		TripID:    trip.ID,
		CreatedAt: time.Now(),
	})
}

// NotifyTripCompleted tells each passenger the trip has ended.
func (s *NotificationService) NotifyTripCompleted(ctx context.Context, trip *domain.Trip, passengerIDs []string) {
	s.sendToAll(passengerIDs, Notification{
		Type:      NotificationTripCompleted,
		Title:     "Trip Completed",
		Message:   fmt.Sprintf("Your trip has ended. Total fare: $%.2f", trip.Fare),
		TripID:    trip.ID,
		CreatedAt: time.Now(),
	})
}

// NotifyTripCancelled tells each recipient the trip was cancelled.
func (s *NotificationService) NotifyTripCancelled(ctx context.Context, trip *domain.Trip, reason string, recipientIDs []string) {
	s.sendToAll(recipientIDs, Notification{
		Type:      NotificationTripCancelled,
		Title:     "Trip Cancelled",
		Message:   reason,
		TripID:    trip.ID,
		CreatedAt: time.Now(),
	})
}

// NotifyPaymentSuccess tells the payer the settlement went through.
func (s *NotificationService) NotifyPaymentSuccess(ctx context.Context, payment *domain.Payment) {
	s.sendToAll([]string{payment.UserID}, Notification{
		Type:      NotificationPaymentSuccess,
		Title:     "Payment Successful",
		Message:   fmt.Sprintf("Payment of $%.2f was successful", payment.Amount),
		TripID:    payment.TripID,
		CreatedAt: time.Now(),
	})
}

func (s *NotificationService) sendToAll(userIDs []string, notification Notification) {
	if s.events == nil {
		return
	}
	for _, userID := range userIDs {
		s.events.PublishUserEvent(userID, EventNotification, notification)
	}
}
