package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/event-booking-engine/internal/model"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "2006-01-02 15:04:05"
	signature  = "Best regards,\nEvent Booking Team"
	rule       = "================="
)

func lines(parts ...string) string { return strings.Join(parts, "\n") }

func confirmationBody(acc model.Account, b model.Booking) string {
	seats := ""
	if len(b.SeatIDs) > 0 {
		seats = "Seats: " + strings.Join(b.SeatIDs, ", ") + "\n"
	}
	return lines(
		fmt.Sprintf("Dear %s,", acc.Username),
		"",
		"Your booking has been confirmed!",
		"",
		"BOOKING DETAILS:",
		rule,
		fmt.Sprintf("Booking ID: %d", b.ID),
		fmt.Sprintf("Event: %s", b.EventName),
		fmt.Sprintf("Event Date: %s", b.EventDate.Format(dateLayout)),
		fmt.Sprintf("Number of Seats: %d", b.SeatsBooked),
		seats+fmt.Sprintf("Total Amount Paid: $%s", b.TotalPrice.StringFixed(2)),
		fmt.Sprintf("Transaction ID: %s", b.TransactionID),
		fmt.Sprintf("Booking Time: %s", b.Timestamp.Format(timeLayout)),
		"",
		"Thank you for booking with us!",
		"",
		signature,
	)
}

func cancellationBody(acc model.Account, b model.Booking, seats int, r model.RefundDetails, now time.Time) string {
	return lines(
		fmt.Sprintf("Dear %s,", acc.Username),
		"",
		"Your booking cancellation has been processed.",
		"",
		"CANCELLATION DETAILS:",
		rule,
		fmt.Sprintf("Event: %s", b.EventName),
		fmt.Sprintf("Seats Cancelled: %d", seats),
		fmt.Sprintf("Days Until Event: %d", r.DaysUntilEvent),
		fmt.Sprintf("Refund Percentage: %.0f%%", r.RefundPercentage),
		fmt.Sprintf("Refund Amount: $%s", r.RefundAmount.StringFixed(2)),
		fmt.Sprintf("Cancellation Time: %s", now.Format(timeLayout)),
		"",
		"The refund will be credited to your original payment method within 5-7 business days.",
		"",
		"We hope to see you at our future events!",
		"",
		signature,
	)
}

func eventCancellationBody(acc model.Account, b model.Booking, reason string, r model.RefundDetails) string {
	if reason == "" {
		reason = "Not specified"
	}
	return lines(
		fmt.Sprintf("Dear %s,", acc.Username),
		"",
		"We regret to inform you that the following event has been CANCELLED:",
		"",
		fmt.Sprintf("EVENT: %s", b.EventName),
		"",
		fmt.Sprintf("REASON: %s", reason),
		"",
		"REFUND DETAILS:",
		rule,
		fmt.Sprintf("Refund Amount: $%s", r.RefundAmount.StringFixed(2)),
		"Refund Status: PROCESSED",
		"Refund will be credited to your original payment method within 5-7 business days.",
		"",
		"We sincerely apologize for any inconvenience caused.",
		"",
		signature,
	)
}

func postponementBody(acc model.Account, b model.Booking, oldDate, newDate time.Time) string {
	return lines(
		fmt.Sprintf("Dear %s,", acc.Username),
		"",
		"We would like to inform you that the following event has been POSTPONED:",
		"",
		fmt.Sprintf("EVENT: %s", b.EventName),
		"",
		fmt.Sprintf("ORIGINAL DATE: %s", oldDate.Format(dateLayout)),
		fmt.Sprintf("NEW DATE: %s", newDate.Format(dateLayout)),
		"",
		"Your booking remains valid for the new date.",
		"",
		"REFUND OPTION:",
		"If you cannot attend on the new date, you may cancel your booking and receive a refund.",
		"",
		signature,
	)
}

func reminderBody(acc model.Account, e model.Event) string {
	return lines(
		fmt.Sprintf("Dear %s,", acc.Username),
		"",
		fmt.Sprintf("This is a friendly reminder that the event '%s' is taking place today.", e.Name),
		"",
		"EVENT DETAILS:",
		rule,
		fmt.Sprintf("Event: %s", e.Name),
		fmt.Sprintf("Date: %s", e.Date.Format(dateLayout)),
		fmt.Sprintf("Venue: %s", e.Venue),
		"",
		"We look forward to seeing you there!",
		"",
		signature,
	)
}

func monthlyBody(acc model.Account, rank, points, tickets int, now time.Time) string {
	return lines(
		fmt.Sprintf("Dear %s,", acc.Username),
		"",
		"Congratulations! Your monthly rewards have been credited!",
		"",
		"MONTHLY REWARDS SUMMARY:",
		rule,
		fmt.Sprintf("Your Rank: #%d", rank),
		fmt.Sprintf("Credit Points Earned: %d points", points),
		fmt.Sprintf("Tickets Purchased This Month: %d", tickets),
		fmt.Sprintf("Month: %s", now.Format("January 2006")),
		"",
		"These credit points can be used for discounts on future bookings.",
		"",
		signature,
	)
}
