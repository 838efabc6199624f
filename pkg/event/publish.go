package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appetiteclub/apt/events"
)

// Publish marshals evt and sends it on topic. A nil publisher is a no-op so
// components can run without a broker.
func Publish(ctx context.Context, pub events.Publisher, topic string, evt any) error {
	if pub == nil {
		return nil
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("cannot marshal %s event: %w", topic, err)
	}
	if err := pub.Publish(ctx, topic, payload); err != nil {
		return fmt.Errorf("cannot publish %s event: %w", topic, err)
	}
	return nil
}

// Topics lists every subject the service publishes on.
var Topics = []string{
	OrderLifecycleTopic,
	KitchenTicketsTopic,
	TableStatusTopic,
	BillsTopic,
}
