package kafka

import (
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/studiooh/proposal-export-service/config"
)

var (
	messagesPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "proposal_service_kafka_produced",
		Help: "Number of messages produced to kafka",
	}, []string{"topic"})
	messagePublishElapsed = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "proposal_service_publish_seconds",
		Help: "Number of seconds spent writing kafka messages",
	}, []string{"topic"})
	publishFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "proposal_service_kafka_produce_failures",
		Help: "Number of times a message was failed to be produced",
	}, []string{"topic"})
	producerCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "proposal_service_kafka_inflight_events",
		Help: "Number of proposal events waiting for a delivery report",
	})
)

func init() {
	prometheus.MustRegister(messagesPublished, messagePublishElapsed, publishFailures, producerCount)
}

// Publisher announces proposal events.
type Publisher interface {
	Publish(event ProposalEvent, header EventHeader)
}

// NoopPublisher drops every event. It is used when no brokers are configured.
type NoopPublisher struct {
	Log *zap.SugaredLogger
}

func (n NoopPublisher) Publish(event ProposalEvent, _ EventHeader) {
	n.Log.Debugw("kafka disabled, dropping proposal event", "proposal_id", event.ProposalID, "status", event.Status)
}

type Producer struct {
	*kafka.Producer
	Topic    string
	Messages chan *kafka.Message
	Log      *zap.SugaredLogger
}

// Publish queues the event for StartProducer.
func (p *Producer) Publish(event ProposalEvent, header EventHeader) {
	msg, err := event.ToMessage(p.Topic, header)
	if err != nil {
		p.Log.Errorw("failed to encode proposal event", "error", err, "proposal_id", event.ProposalID)
		return
	}
	p.Messages <- msg
}

// StartProducer drains the message channel until it is closed.
func (p *Producer) StartProducer() {
	p.Log.Infow("started kafka producer", "topic", p.Topic)
	for v := range p.Messages {
		go p.produce(v)
	}
}

func (p *Producer) produce(v *kafka.Message) {
	producerCount.Inc()
	defer producerCount.Dec()
	labels := prometheus.Labels{"topic": p.Topic}
	start := time.Now()

	delivery := make(chan kafka.Event, 1)
	if err := p.Produce(v, delivery); err != nil {
		p.Log.Errorw("error publishing to kafka", "error", err)
		publishFailures.With(labels).Inc()
		return
	}
	e := <-delivery
	messagePublishElapsed.With(labels).Observe(time.Since(start).Seconds())

	ev, ok := e.(*kafka.Message)
	if !ok {
		return
	}
	if ev.TopicPartition.Error != nil {
		p.Log.Errorw("error publishing to kafka", "error", ev.TopicPartition.Error)
		publishFailures.With(labels).Inc()
		return
	}
	p.Log.Debugf("delivered message to %v", ev.TopicPartition)
	messagesPublished.With(labels).Inc()
}

// Enabled reports whether any broker is configured.
func Enabled(cfg *config.ProposalConfig) bool {
	for _, b := range cfg.KafkaConfig.KafkaBrokers {
		if strings.TrimSpace(b) != "" {
			return true
		}
	}
	return false
}

func NewProducer(cfg *config.ProposalConfig, log *zap.SugaredLogger) (*Producer, error) {
	brokers := strings.Join(cfg.KafkaConfig.KafkaBrokers, ",")
	log.Infow("kafka configuration values",
		"client.id", cfg.Hostname,
		"bootstrap.servers", brokers,
		"topic", cfg.KafkaConfig.EventsTopic,
		"loglevel", cfg.LogLevel,
		"debug", cfg.Debug,
	)
	kcfg := kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"client.id":         cfg.Hostname,
	}
	if ssl := cfg.KafkaConfig.KafkaSSLConfig; ssl.SASLMechanism != "" {
		for k, v := range map[string]string{
			"security.protocol": ssl.Protocol,
			"sasl.mechanism":    ssl.SASLMechanism,
			"ssl.ca.location":   ssl.KafkaCA,
			"sasl.username":     ssl.KafkaUsername,
			"sasl.password":     ssl.KafkaPassword,
		} {
			if err := kcfg.SetKey(k, v); err != nil {
				return nil, err
			}
		}
	}

	p, err := kafka.NewProducer(&kcfg)
	if err != nil {
		return nil, err
	}
	return &Producer{
		Producer: p,
		Topic:    cfg.KafkaConfig.EventsTopic,
		Messages: make(chan *kafka.Message, 100),
		Log:      log,
	}, nil
}
