package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/edgy2009/adboard/internal/models"
	"github.com/edgy2009/adboard/internal/observability"
)

// MQTTBridge subscribes to a board's sensor topics and caches the newest
// sample per feed, so the board can run without shared feed files. Sensors
// publish the same record shapes as the file feeds, one record per message,
// on <prefix>/<board>/environment and <prefix>/<board>/audience.
type MQTTBridge struct {
	client  mqtt.Client
	prefix  string
	boardID string
	maxAge  time.Duration
	logger  *zap.Logger
	metrics observability.MetricsRegistry

	mu          sync.RWMutex
	env         models.EnvironmentReading
	envReceived bool
	aud         models.AudienceReading
	audReceived bool
}

// NewMQTTBridge connects to the broker and subscribes to both sensor topics
// for the given board. Subscriptions are re-established on reconnect.
func NewMQTTBridge(brokerURL, clientID, prefix, boardID string, maxAge time.Duration, logger *zap.Logger, metrics observability.MetricsRegistry) (*MQTTBridge, error) {
	b := &MQTTBridge{
		prefix:  prefix,
		boardID: boardID,
		maxAge:  maxAge,
		logger:  logger,
		metrics: metrics,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		if err := b.subscribe(c); err != nil {
			logger.Error("mqtt subscribe failed", zap.Error(err))
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", zap.Error(err))
	})

	b.client = mqtt.NewClient(opts)
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker: %w", token.Error())
	}
	return b, nil
}

func (b *MQTTBridge) topic(feed string) string {
	return fmt.Sprintf("%s/%s/%s", b.prefix, b.boardID, feed)
}

func (b *MQTTBridge) subscribe(c mqtt.Client) error {
	subs := map[string]mqtt.MessageHandler{
		b.topic("environment"): b.handleEnvironment,
		b.topic("audience"):    b.handleAudience,
	}
	for topic, handler := range subs {
		if token := c.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
			return fmt.Errorf("subscribe %s: %w", topic, token.Error())
		}
	}
	b.logger.Info("mqtt bridge subscribed",
		zap.String("prefix", b.prefix),
		zap.String("board_id", b.boardID),
	)
	return nil
}

func (b *MQTTBridge) handleEnvironment(_ mqtt.Client, msg mqtt.Message) {
	rec, err := parseRecordPayload(msg.Payload())
	if err == nil {
		var reading models.EnvironmentReading
		reading, err = parseEnvironmentRecord(rec)
		if err == nil {
			b.mu.Lock()
			b.env = reading
			b.envReceived = true
			b.mu.Unlock()
			b.metrics.IncrementMQTTSamples("environment")
			return
		}
	}
	b.logger.Warn("dropping malformed environment sample",
		zap.String("topic", msg.Topic()),
		zap.Error(err),
	)
	b.metrics.IncrementFeedErrors("environment")
}

func (b *MQTTBridge) handleAudience(_ mqtt.Client, msg mqtt.Message) {
	rec, err := parseRecordPayload(msg.Payload())
	if err == nil {
		var reading models.AudienceReading
		reading, err = parseAudienceRecord(rec)
		if err == nil {
			b.mu.Lock()
			b.aud = reading
			b.audReceived = true
			b.mu.Unlock()
			b.metrics.IncrementMQTTSamples("audience")
			return
		}
	}
	b.logger.Warn("dropping malformed audience sample",
		zap.String("topic", msg.Topic()),
		zap.Error(err),
	)
	b.metrics.IncrementFeedErrors("audience")
}

// LatestEnvironment returns the newest sample from the environment topic.
func (b *MQTTBridge) LatestEnvironment(_ context.Context) (models.EnvironmentReading, error) {
	b.mu.RLock()
	reading, ok := b.env, b.envReceived
	b.mu.RUnlock()
	if !ok {
		return models.EnvironmentReading{}, fmt.Errorf("%w: no environment sample received", ErrDataUnavailable)
	}
	if err := checkAge(reading.Timestamp, b.maxAge); err != nil {
		return models.EnvironmentReading{}, err
	}
	return reading, nil
}

// LatestAudience returns the newest sample from the audience topic.
func (b *MQTTBridge) LatestAudience(_ context.Context) (models.AudienceReading, error) {
	b.mu.RLock()
	reading, ok := b.aud, b.audReceived
	b.mu.RUnlock()
	if !ok {
		return models.AudienceReading{}, fmt.Errorf("%w: no audience sample received", ErrDataUnavailable)
	}
	if err := checkAge(reading.Timestamp, b.maxAge); err != nil {
		return models.AudienceReading{}, err
	}
	return reading, nil
}

// EnvironmentSource adapts the bridge to the EnvironmentSource interface.
func (b *MQTTBridge) EnvironmentSource() EnvironmentSource { return mqttEnvSource{b} }

// AudienceSource adapts the bridge to the AudienceSource interface.
func (b *MQTTBridge) AudienceSource() AudienceSource { return mqttAudienceSource{b} }

type mqttEnvSource struct{ b *MQTTBridge }

func (s mqttEnvSource) Latest(ctx context.Context) (models.EnvironmentReading, error) {
	return s.b.LatestEnvironment(ctx)
}

type mqttAudienceSource struct{ b *MQTTBridge }

func (s mqttAudienceSource) Latest(ctx context.Context) (models.AudienceReading, error) {
	return s.b.LatestAudience(ctx)
}

// Close disconnects from the broker.
func (b *MQTTBridge) Close() {
	b.client.Disconnect(250)
}
