package kafka

import (
	"time"

	"examguard/internal/platform/config"
)

// ProducerConfig holds configuration for the Kafka producer.
type ProducerConfig struct {
	Brokers         string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
}

// DefaultProducerConfig returns production defaults for brokers.
func DefaultProducerConfig(brokers string) ProducerConfig {
	return ProducerConfig{
		Brokers:         brokers,
		Acks:            "all",
		Retries:         3,
		DeliveryTimeout: 30 * time.Second,
	}
}

// ProducerConfigFrom derives producer settings from the server config.
func ProducerConfigFrom(cfg config.KafkaConfig) ProducerConfig {
	return DefaultProducerConfig(cfg.Brokers)
}
