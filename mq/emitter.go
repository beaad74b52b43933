package mq

import (
	"context"
	"encoding/json"
	"log"

	"cropcart/models"
	"cropcart/rdx"
)

const channel = "indexing-events"

// Emit publishes indexing events to Redis pub/sub. Fire-and-forget: failures
// are logged, never surfaced to the caller.
func Emit(ctx context.Context, eventName string, content models.Index) {
	if rdx.Conn == nil {
		return
	}

	data, err := json.Marshal(content)
	if err != nil {
		log.Printf("[Emit] Failed to marshal event content: %v", err)
		return
	}

	if err := rdx.Conn.Publish(context.Background(), channel, data).Err(); err != nil {
		log.Printf("[Emit] Failed to publish %s event to Redis: %v", eventName, err)
	}
}

// StartIndexingWorker consumes indexing events for the lifetime of the process.
func StartIndexingWorker() {
	ctx := context.Background()
	sub := rdx.Conn.Subscribe(ctx, channel)
	ch := sub.Channel()

	log.Println("[IndexingWorker] Listening for indexing events...")

	for msg := range ch {
		var event models.Index
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Printf("[IndexingWorker] Failed to parse event: %v", err)
			continue
		}
		log.Printf("[IndexingWorker] Processing event=%+v", event)
	}
}
