package kafka

import (
	"encoding/json"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/google/uuid"
)

const Application = "proposal-export-service"

type EventHeader struct {
	Application string `json:"application"`
	RequestID   string `json:"x-rh-insights-request-id"`
}

// ToHeader converts the EventHeader into confluent kafka headers
func (h EventHeader) ToHeader() []kafka.Header {
	result := []kafka.Header{
		{Key: "application", Value: []byte(h.Application)},
	}
	if h.RequestID != "" {
		result = append(result, kafka.Header{Key: "x-rh-insights-request-id", Value: []byte(h.RequestID)})
	}
	return result
}

// ProposalEvent announces a finished export run, successful or not.
type ProposalEvent struct {
	ProposalID     uuid.UUID `json:"proposal_id"`
	OrganizationID string    `json:"org_id"`
	Username       string    `json:"username"`
	Format         string    `json:"format"`
	Status         string    `json:"status"`
	MediaCount     int       `json:"media_count"`
	Filename       string    `json:"filename,omitempty"`
	Message        string    `json:"message,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// ToMessage converts the event into a kafka.Message keyed by proposal so
// that events of one proposal stay ordered.
func (e ProposalEvent) ToMessage(topic string, header EventHeader) (*kafka.Message, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return &kafka.Message{
		Headers: header.ToHeader(),
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(e.ProposalID.String()),
		Value: val,
	}, nil
}
