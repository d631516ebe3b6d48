package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeReservationCreated   = "reservation.created"
	EventTypeReservationCancelled = "reservation.cancelled"
	EventTypePaymentConfirmed     = "payment.confirmed"
	EventTypePaymentRejected      = "payment.rejected"
)

type ReservationCreatedEvent struct {
	BaseEvent
	ReservationID int64  `json:"reservation_id"`
	ListingID     int64  `json:"listing_id"`
	UserID        int64  `json:"user_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

func NewReservationCreatedEvent(reservationID, listingID, userID, amount int64, currency string) *ReservationCreatedEvent {
	return &ReservationCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeReservationCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"reservation_id": reservationID,
				"listing_id":     listingID,
				"user_id":        userID,
				"amount":         amount,
				"currency":       currency,
			},
		},
		ReservationID: reservationID,
		ListingID:     listingID,
		UserID:        userID,
		Amount:        amount,
		Currency:      currency,
	}
}

type ReservationCancelledEvent struct {
	BaseEvent
	ReservationID int64 `json:"reservation_id"`
	UserID        int64 `json:"user_id"`
}

func NewReservationCancelledEvent(reservationID, userID int64) *ReservationCancelledEvent {
	return &ReservationCancelledEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeReservationCancelled,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"reservation_id": reservationID,
				"user_id":        userID,
			},
		},
		ReservationID: reservationID,
		UserID:        userID,
	}
}

type PaymentConfirmedEvent struct {
	BaseEvent
	PaymentID     int64  `json:"payment_id"`
	ReservationID int64  `json:"reservation_id"`
	UserID        int64  `json:"user_id"`
	Gateway       string `json:"gateway"`
	ExternalRef   string `json:"external_reference"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

func NewPaymentConfirmedEvent(paymentID, reservationID, userID int64, gateway, externalRef string, amount int64, currency string) *PaymentConfirmedEvent {
	return &PaymentConfirmedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentConfirmed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":         paymentID,
				"reservation_id":     reservationID,
				"user_id":            userID,
				"gateway":            gateway,
				"external_reference": externalRef,
				"amount":             amount,
				"currency":           currency,
			},
		},
		PaymentID:     paymentID,
		ReservationID: reservationID,
		UserID:        userID,
		Gateway:       gateway,
		ExternalRef:   externalRef,
		Amount:        amount,
		Currency:      currency,
	}
}

type PaymentRejectedEvent struct {
	BaseEvent
	PaymentID     int64  `json:"payment_id"`
	ReservationID int64  `json:"reservation_id"`
	UserID        int64  `json:"user_id"`
	Gateway       string `json:"gateway"`
	ExternalRef   string `json:"external_reference"`
	FailureReason string `json:"failure_reason"`
}

func NewPaymentRejectedEvent(paymentID, reservationID, userID int64, gateway, externalRef, failureReason string) *PaymentRejectedEvent {
	return &PaymentRejectedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentRejected,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":         paymentID,
				"reservation_id":     reservationID,
				"user_id":            userID,
				"gateway":            gateway,
				"external_reference": externalRef,
				"failure_reason":     failureReason,
			},
		},
		PaymentID:     paymentID,
		ReservationID: reservationID,
		UserID:        userID,
		Gateway:       gateway,
		ExternalRef:   externalRef,
		FailureReason: failureReason,
	}
}
