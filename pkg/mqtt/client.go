package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type Config struct {
	Broker               string
	ClientID             string
	Username             string
	Password             string
	KeepAlive            int
	ConnectTimeout       int
	MaxReconnectInterval time.Duration
}

// MessageHandler receives the topic and raw payload of an inbound message.
type MessageHandler func(topic string, payload []byte)

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Client wraps a paho MQTT client. Subscriptions are tracked so they can be
// re-established after an automatic reconnect; with a clean session the
// broker forgets them otherwise.
type Client struct {
	client mqtt.Client
	config *Config

	mu   sync.Mutex
	subs map[string]subscription
}

func NewClient(config *Config) *Client {
	if config.KeepAlive <= 0 {
		config.KeepAlive = 30
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 10
	}
	if config.MaxReconnectInterval <= 0 {
		config.MaxReconnectInterval = time.Minute
	}

	c := &Client{
		config: config,
		subs:   make(map[string]subscription),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetCleanSession(true)
	opts.SetKeepAlive(time.Duration(config.KeepAlive) * time.Second)
	opts.SetConnectTimeout(time.Duration(config.ConnectTimeout) * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(config.MaxReconnectInterval)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Println("mqtt client connected")
		c.resubscribe()
	})

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("mqtt connection lost: %v", err)
	})

	opts.SetReconnectingHandler(func(client mqtt.Client, opts *mqtt.ClientOptions) {
		log.Println("reconnecting to MQTT broker...")
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// Connect establishes a connection to the MQTT broker.
func (c *Client) Connect() error {
	log.Printf("Connecting to MQTT broker at %s", c.config.Broker)

	token := c.client.Connect()
	token.Wait()

	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	return nil
}

// Subscribe subscribes to a topic and remembers it for reconnects.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if err := c.subscribe(topic, qos, handler); err != nil {
		return err
	}

	c.mu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()

	log.Printf("Subscribed to topic: %s (QoS: %d)", topic, qos)
	return nil
}

func (c *Client) subscribe(topic string, qos byte, handler MessageHandler) error {
	token := c.client.Subscribe(topic, qos, func(client mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})

	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}
	return nil
}

func (c *Client) resubscribe() {
	c.mu.Lock()
	subs := make(map[string]subscription, len(c.subs))
	for topic, sub := range c.subs {
		subs[topic] = sub
	}
	c.mu.Unlock()

	for topic, sub := range subs {
		if err := c.subscribe(topic, sub.qos, sub.handler); err != nil {
			log.Printf("resubscribe failed for topic %s: %v", topic, err)
		}
	}
}

// Unsubscribe unsubscribes from the given topics.
func (c *Client) Unsubscribe(topics ...string) error {
	c.mu.Lock()
	for _, topic := range topics {
		delete(c.subs, topic)
	}
	c.mu.Unlock()

	token := c.client.Unsubscribe(topics...)
	token.Wait()
	return token.Error()
}

// Disconnect disconnects from the MQTT broker.
func (c *Client) Disconnect() {
	log.Println("Disconnecting from MQTT broker...")
	c.client.Disconnect(250)
	log.Println("Disconnected from MQTT broker")
}

// IsConnected returns the connection status.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}
