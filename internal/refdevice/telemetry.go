package refdevice

import (
	"fmt"
	"log"
	"strings"
	"time"

	"ckbcored/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Telemetry publishes device state to an MQTT broker: a connect/LWT/
// auto-reconnect client reporting device/mode/RGB-flush events. There
// is nothing to subscribe to — the reference device is a telemetry
// source, not an MQTT-controlled one.
type Telemetry struct {
	client mqtt.Client
	prefix string
}

// NewTelemetry builds a Telemetry publisher from cfg.MQTT, or nil if
// MQTT is disabled.
func NewTelemetry(cfg *config.Config) *Telemetry {
	if !cfg.MQTT.Enabled {
		return nil
	}

	prefix := strings.TrimSuffix(cfg.MQTT.TopicPrefix, "/")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTT.Broker)
	opts.SetClientID(cfg.MQTT.ClientID)
	opts.SetUsername(cfg.MQTT.Username)
	opts.SetPassword(cfg.MQTT.Password)

	opts.SetKeepAlive(10 * time.Second)
	opts.SetPingTimeout(5 * time.Second)

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(1 * time.Minute)

	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)

	opts.SetOrderMatters(false)

	opts.SetWill(prefix+"/availability", "offline", 1, true)

	t := &Telemetry{prefix: prefix}

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Println("[MQTT] Connected to broker.")
		client.Publish(prefix+"/availability", 0, true, "online")
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("[MQTT] Connection lost: %v. Retrying in background...", err)
	})
	opts.SetReconnectingHandler(func(client mqtt.Client, options *mqtt.ClientOptions) {
		log.Println("[MQTT] Attempting to reconnect...")
	})

	t.client = mqtt.NewClient(opts)
	return t
}

// Connect starts the connection loop. A nil receiver (MQTT disabled)
// is a harmless no-op.
func (t *Telemetry) Connect() error {
	if t == nil || t.client == nil {
		return nil
	}
	log.Printf("[MQTT] Starting connection loop...")
	token := t.client.Connect()
	if token.Wait() && token.Error() != nil {
		log.Printf("[MQTT] Initial connection error: %v", token.Error())
		return token.Error()
	}
	return nil
}

// Disconnect publishes an offline status and closes the connection.
func (t *Telemetry) Disconnect() {
	if t == nil || t.client == nil || !t.client.IsConnected() {
		return
	}
	token := t.client.Publish(t.prefix+"/availability", 0, true, "offline")
	if !token.WaitTimeout(2 * time.Second) {
		log.Println("[MQTT] Warning: timed out publishing offline status")
	}
	t.client.Disconnect(250)
	log.Println("[MQTT] Disconnected.")
}

// Publish sends a retained telemetry value for device name under
// subtopic, e.g. Publish("keyboard-0", "active", "true").
func (t *Telemetry) Publish(name, subtopic string, payload interface{}) {
	if t == nil || t.client == nil || !t.client.IsConnected() {
		return
	}
	topic := fmt.Sprintf("%s/%s/%s", t.prefix, name, subtopic)
	msg := fmt.Sprintf("%v", payload)
	token := t.client.Publish(topic, 0, true, msg)
	go func() {
		if token.WaitTimeout(5 * time.Second) {
			if token.Error() != nil {
				log.Printf("[MQTT] Publish error to %s: %v", topic, token.Error())
			}
		} else {
			log.Printf("[MQTT] Timeout publishing to %s", topic)
		}
	}()
}
