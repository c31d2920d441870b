package notifications

// Domain event types published by the engine. Downstream consumers (email,
// push, invoicing) subscribe to these topics; delivery is at-least-once, so
// handlers must be idempotent.
const (
	EventBookingCreated     = "booking.created"
	EventBookingConfirmed   = "booking.confirmed"
	EventBookingCancelled   = "booking.cancelled"
	EventBookingCompleted   = "booking.completed"
	EventBookingReminderDue = "booking.reminder_due"
	EventBookingDiscounted  = "booking.discount_applied"

	EventWaitlistSlotAvailable = "waitlist.slot_available"

	EventPaymentRefundRequired = "payment.refund_required"
	EventPaymentFailed         = "payment.failed"
	EventPaymentReceiptDue     = "payment.receipt_due"
)

// Topic names, one per event family, mirroring the split between booking,
// payment and waitlist consumers.
const (
	TopicBookingEvents  = "booking-events"
	TopicPaymentEvents  = "payment-events"
	TopicWaitlistEvents = "waitlist-events"
)

// TopicFor routes an event type to its topic.
func TopicFor(eventType string) string {
	switch eventType {
	case EventPaymentRefundRequired, EventPaymentFailed, EventPaymentReceiptDue:
		return TopicPaymentEvents
	case EventWaitlistSlotAvailable:
		return TopicWaitlistEvents
	default:
		return TopicBookingEvents
	}
}
