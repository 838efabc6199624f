package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/appetiteclub/apt"

	"github.com/appetiteclub/tableside/pkg"
)

// Watch prints every event published on topics until ctx is done.
func Watch(ctx context.Context, w io.Writer, natsURL string, topics []string, logger apt.Logger) error {
	sub, err := pkg.NewNATSSubscriber(natsURL, "tableside-utils", logger)
	if err != nil {
		return err
	}
	defer sub.Close()

	var mu sync.Mutex
	for _, topic := range topics {
		err := sub.Subscribe(ctx, topic, func(ctx context.Context, msg []byte) error {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintln(w, FormatEvent(topic, msg))
			return nil
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}

	logger.Info("watching events", "topics", topics)
	<-ctx.Done()
	return nil
}

// FormatEvent renders one event as "topic event_type key=value ...".
func FormatEvent(topic string, msg []byte) string {
	var fields map[string]any
	if err := json.Unmarshal(msg, &fields); err != nil {
		return fmt.Sprintf("%s <undecodable: %s>", topic, string(msg))
	}

	line := topic
	if t, ok := fields["event_type"]; ok {
		line += " " + fmt.Sprint(t)
	}
	for _, key := range []string{"order_number", "ticket_number", "bill_number", "table_number", "status", "new_stage", "total"} {
		if v, ok := fields[key]; ok && v != "" {
			line += fmt.Sprintf(" %s=%v", key, v)
		}
	}
	return line
}
