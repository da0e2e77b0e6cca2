package kafka_client

import "time"

const (
	KAFKA_TOPIC_DD_ACTIONS = "dd-actions" // buy/sell/hold decisions for DD posts

	MAX_RETRIES    = 3
	RETRY_DELAY    = 2 * time.Second
	FLUSH_TIMEOUT  = 5000 // ms
	DELIVERY_WAIT  = 10 * time.Second
	PAYLOAD_SCHEMA = "ddscraper.action.v1"
)
