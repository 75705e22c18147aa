package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/VEB4697/smart-iot/internal/logger"
	"github.com/VEB4697/smart-iot/internal/usecase/ingest"
	pkgmqtt "github.com/VEB4697/smart-iot/pkg/mqtt"

	"go.uber.org/zap"
)

// BridgeConfig describes the MQTT connection and the uplink topic.
type BridgeConfig struct {
	ClientConfig *pkgmqtt.Config
	DataTopic    string
	QoS          byte
}

// Bridge subscribes to the device uplink topic and feeds decoded telemetry
// into the same ingest service the HTTP data endpoint uses.
type Bridge struct {
	cfg        *BridgeConfig
	client     *pkgmqtt.Client
	dispatcher *Dispatcher

	mu      sync.Mutex
	started bool
}

// NewBridge builds a bridge over the given dispatcher.
func NewBridge(cfg *BridgeConfig, dispatcher *Dispatcher) (*Bridge, error) {
	if cfg == nil || cfg.ClientConfig == nil {
		return nil, errors.New("mqtt bridge config is not configured")
	}
	if cfg.DataTopic == "" {
		return nil, errors.New("data topic is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}

	return &Bridge{
		cfg:        cfg,
		client:     pkgmqtt.NewClient(cfg.ClientConfig),
		dispatcher: dispatcher,
	}, nil
}

// Start connects to the broker, starts the dispatcher workers and subscribes
// to the uplink topic.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return nil
	}

	if err := b.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	b.dispatcher.Start()

	if err := b.client.Subscribe(b.cfg.DataTopic, b.cfg.QoS, b.handleDataMessage); err != nil {
		b.client.Disconnect()
		return fmt.Errorf("subscribe failed for topic %s: %w", b.cfg.DataTopic, err)
	}

	logger.Info("MQTT telemetry bridge started", zap.String("topic", b.cfg.DataTopic))
	b.started = true
	return nil
}

// Stop unsubscribes from the uplink topic, disconnects and drains the
// dispatcher. Unsubscribing first keeps new messages from racing the drain.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return
	}

	if err := b.client.Unsubscribe(b.cfg.DataTopic); err != nil {
		logger.Warn("Failed to unsubscribe from uplink topic", zap.Error(err))
	}
	b.client.Disconnect()
	b.dispatcher.Stop()
	b.started = false
}

// handleDataMessage decodes an uplink payload and queues it for ingest. The
// payload contract matches the HTTP data endpoint.
func (b *Bridge) handleDataMessage(topic string, payload []byte) {
	var req ingest.IngestRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		logger.Warn("Invalid uplink payload",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return
	}

	b.dispatcher.Dispatch(&req)
}
