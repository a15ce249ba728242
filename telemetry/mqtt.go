package telemetry

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/w1xm/linktrack/signal"
)

// MQTTSource follows link reports published as JSON objects, for example
// {"signal-strength": -62, "signal-to-noise": 31}. An empty object means
// the peer dropped off the link.
type MQTTSource struct {
	*Latest

	Broker   string
	Topic    string
	ClientID string

	client mqtt.Client
}

func NewMQTTSource(broker, topic string, maxAge time.Duration) *MQTTSource {
	return &MQTTSource{
		Latest:   NewLatest(maxAge),
		Broker:   broker,
		Topic:    topic,
		ClientID: "linktrack",
	}
}

func (s *MQTTSource) handle(_ mqtt.Client, msg mqtt.Message) {
	v, err := DecodeJSON(msg.Payload())
	if err != nil {
		Logf("decoding %s: %v", msg.Topic(), err)
		return
	}
	s.Set(v)
}

func (s *MQTTSource) subscribe(client mqtt.Client) {
	Logf("connected to %s", s.Broker)
	token := client.Subscribe(s.Topic, 0, s.handle)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			Logf("subscribing to %q: %v", s.Topic, err)
			return
		}
		Logf("subscribed to %q", s.Topic)
	}()
}

// Connect starts the client, which reconnects and resubscribes on its own
// until ctx is done.
func (s *MQTTSource) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.Broker)
	opts.SetClientID(s.ClientID)
	opts.OnConnect = s.subscribe
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		Logf("connection to %s lost: %v", s.Broker, err)
		s.Set(signal.Lost)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)

	s.client = mqtt.NewClient(opts)
	token := s.client.Connect()
	// With ConnectRetry the token completes only once connected.
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("connecting to %s: %w", s.Broker, err)
		}
	case <-time.After(time.Second):
		Logf("broker %s not reachable yet, retrying", s.Broker)
	}
	go func() {
		<-ctx.Done()
		s.client.Disconnect(250)
	}()
	return nil
}
