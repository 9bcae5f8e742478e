// Package queue defines the messages exchanged over the broker together
// with the publisher and the background consumer.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// NotificationQueue is the durable queue carrying outgoing e-mail.
const NotificationQueue = "booking.notifications"

// E-mail kinds carried in EmailMessage.Kind.
const (
	KindBookingConfirmation = "booking_confirmation"
	KindBookingCancellation = "booking_cancellation"
	KindEventCancellation   = "event_cancellation"
	KindEventPostponement   = "event_postponement"
	KindEventReminder       = "event_reminder"
	KindMonthlyCredits      = "monthly_credits"
)

// EmailMessage is one rendered e-mail waiting for delivery.  It carries
// everything the consumer needs, so delivery never reads the database.
type EmailMessage struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Username  string `json:"username"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	BookingID int64  `json:"booking_id,omitempty"`
	EventID   int64  `json:"event_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

// NewEmailMessage stamps a message with a fresh id and creation time.
func NewEmailMessage(kind, username, to, subject, body string, now time.Time) EmailMessage {
	return EmailMessage{
		ID:        uuid.NewString(),
		Kind:      kind,
		Username:  username,
		To:        to,
		Subject:   subject,
		Body:      body,
		CreatedAt: now.UTC().Format(time.RFC3339),
	}
}
