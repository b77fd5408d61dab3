package events

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Topic is the MQTT topic both event kinds are published to, generalizing
// the teacher's two-topic split (energy/boiler/sensor/events,
// energy/boiler/sensor/system) into one topic carrying a discriminated
// envelope, since this core has only two event kinds rather than four.
const Topic = "espresso/boiler/events"

// envelope discriminates which event kind a published MQTT message
// carries.
type envelope struct {
	Kind        string               `json:"kind"`
	ModeChange  *ModeChange          `json:"mode_change,omitempty"`
	MachineState *MachineStateChange `json:"machine_state,omitempty"`
}

// MQTTPublisher bridges ChannelBus events onto an MQTT broker, grounded on
// the teacher's internal/mqtt.RealPublisher connect/publish/timeout
// pattern.
type MQTTPublisher struct {
	client paho.Client
	topic  string
}

// NewMQTTPublisher connects to broker and returns a publisher. Connection
// uses the same retry/timeout posture as the teacher's RealPublisher.
func NewMQTTPublisher(broker string) (*MQTTPublisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("espresso-controller").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect: timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	return &MQTTPublisher{client: client, topic: Topic}, nil
}

// PublishModeChange publishes ev at QoS 1 (mode transitions are rare and
// worth the delivery guarantee).
func (p *MQTTPublisher) PublishModeChange(ev ModeChange) error {
	payload, err := json.Marshal(envelope{Kind: "mode_change", ModeChange: &ev})
	if err != nil {
		return fmt.Errorf("marshal mode_change: %w", err)
	}
	return p.publish(payload, 1)
}

// PublishMachineState publishes ev at QoS 0 (frequent, best-effort).
func (p *MQTTPublisher) PublishMachineState(ev MachineStateChange) error {
	payload, err := json.Marshal(envelope{Kind: "machine_state", MachineState: &ev})
	if err != nil {
		return fmt.Errorf("marshal machine_state: %w", err)
	}
	return p.publish(payload, 0)
}

func (p *MQTTPublisher) publish(payload []byte, qos byte) error {
	token := p.client.Publish(p.topic, qos, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt publish: timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
