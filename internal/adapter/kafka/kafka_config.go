package kafka

import (
	"time"

	"github.com/IBM/sarama"
)

func NewConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_6_0_0
	cfg.ClientID = clientID
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true // required by SyncProducer
	cfg.Producer.Retry.Max = 3
	cfg.Net.DialTimeout = 5 * time.Second
	return cfg
}

func NewSyncProducer(brokers []string, clientID string) (sarama.SyncProducer, error) {
	return sarama.NewSyncProducer(brokers, NewConfig(clientID))
}
