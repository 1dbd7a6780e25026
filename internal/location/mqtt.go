// Package location feeds user position updates from MQTT into the pipeline.
package location

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/mr1hm/safespot-alerts/internal/models"
)

const DefaultTopic = "safespot/user/location"

// Sink receives validated location fixes.
type Sink interface {
	SetUserLocation(u models.UserLocation)
}

type locationMessage struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Altitude  float64  `json:"altitude"`
}

type Subscriber struct {
	client mqtt.Client
	topic  string
	sink   Sink
}

func NewSubscriber(client mqtt.Client, topic string, sink Sink) *Subscriber {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Subscriber{client: client, topic: topic, sink: sink}
}

// Connect dials the broker. The returned client reconnects on its own.
func Connect(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return client, nil
}

func (s *Subscriber) Start() error {
	token := s.client.Subscribe(s.topic, 1, s.handleMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", s.topic, err)
	}
	slog.Info("subscribed to location updates", "topic", s.topic)
	return nil
}

func (s *Subscriber) Stop() {
	if token := s.client.Unsubscribe(s.topic); token.Wait() && token.Error() != nil {
		slog.Warn("mqtt unsubscribe failed", "topic", s.topic, "error", token.Error())
	}
}

func (s *Subscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	u, err := ParseLocation(msg.Payload())
	if err != nil {
		slog.Warn("dropping location message", "topic", msg.Topic(), "error", err)
		return
	}
	slog.Debug("location update", "latitude", u.Latitude, "longitude", u.Longitude)
	s.sink.SetUserLocation(u)
}

// ParseLocation decodes and validates a JSON location payload.
func ParseLocation(payload []byte) (models.UserLocation, error) {
	var raw locationMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return models.UserLocation{}, fmt.Errorf("invalid location message: %w", err)
	}
	if raw.Latitude == nil || raw.Longitude == nil {
		return models.UserLocation{}, errors.New("latitude and longitude: required")
	}
	u := models.UserLocation{Latitude: *raw.Latitude, Longitude: *raw.Longitude, Altitude: raw.Altitude}
	if err := Validate(u); err != nil {
		return models.UserLocation{}, err
	}
	return u, nil
}

func Validate(u models.UserLocation) error {
	if u.Latitude < -90 || u.Latitude > 90 {
		return fmt.Errorf("latitude: must be between -90 and 90")
	}
	if u.Longitude < -180 || u.Longitude > 180 {
		return fmt.Errorf("longitude: must be between -180 and 180")
	}
	return nil
}
