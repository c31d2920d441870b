package payments

import (
	"context"
	"log"
)

// Gateway is the outbound port to the card processor. Refund requests are
// fire-and-forget: the processor's confirmation arrives later on the event
// stream and is applied by RecordRefundConfirmed, never assumed on request.
type Gateway interface {
	RequestRefund(ctx context.Context, gatewayRef string, amount float64) error
}

// NopGateway accepts every request without doing anything. Used in tests and
// in environments without a processor configured.
type NopGateway struct{}

func (NopGateway) RequestRefund(ctx context.Context, gatewayRef string, amount float64) error {
	log.Printf("gateway refund requested: ref=%s amount=%.2f", gatewayRef, amount)
	return nil
}
