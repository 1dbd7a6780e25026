package location

import (
	"testing"

	"github.com/mr1hm/safespot-alerts/internal/models"
)

type recordingSink struct {
	got []models.UserLocation
}

func (r *recordingSink) SetUserLocation(u models.UserLocation) {
	r.got = append(r.got, u)
}

type fakeMQTTMessage struct {
	payload []byte
}

func (f *fakeMQTTMessage) Duplicate() bool   { return false }
func (f *fakeMQTTMessage) Qos() byte         { return 1 }
func (f *fakeMQTTMessage) Retained() bool    { return false }
func (f *fakeMQTTMessage) Topic() string     { return DefaultTopic }
func (f *fakeMQTTMessage) MessageID() uint16 { return 0 }
func (f *fakeMQTTMessage) Payload() []byte   { return f.payload }
func (f *fakeMQTTMessage) Ack()              {}

func TestHandleMessage_Success(t *testing.T) {
	sink := &recordingSink{}
	sub := NewSubscriber(nil, "", sink)

	sub.handleMessage(nil, &fakeMQTTMessage{payload: []byte(`{"latitude":37.3230,"longitude":-122.0322,"altitude":72}`)})

	if len(sink.got) != 1 {
		t.Fatalf("expected 1 location, got %d", len(sink.got))
	}
	u := sink.got[0]
	if u.Latitude != 37.3230 || u.Longitude != -122.0322 {
		t.Errorf("unexpected location %+v", u)
	}
	if u.Altitude != 72 {
		t.Errorf("expected altitude 72, got %f", u.Altitude)
	}
}

func TestHandleMessage_AltitudeDefaultsToZero(t *testing.T) {
	sink := &recordingSink{}
	sub := NewSubscriber(nil, "", sink)

	sub.handleMessage(nil, &fakeMQTTMessage{payload: []byte(`{"latitude":0,"longitude":0}`)})

	if len(sink.got) != 1 {
		t.Fatalf("expected 1 location, got %d", len(sink.got))
	}
	if sink.got[0].Altitude != 0 {
		t.Errorf("expected altitude 0, got %f", sink.got[0].Altitude)
	}
}

func TestHandleMessage_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `lat=1`},
		{"missing longitude", `{"latitude":10}`},
		{"latitude too large", `{"latitude":90.5,"longitude":0}`},
		{"longitude too small", `{"latitude":0,"longitude":-180.1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			sub := NewSubscriber(nil, "", sink)

			sub.handleMessage(nil, &fakeMQTTMessage{payload: []byte(tt.payload)})

			if len(sink.got) != 0 {
				t.Errorf("expected message to be dropped, got %+v", sink.got)
			}
		})
	}
}

func TestValidate_Boundaries(t *testing.T) {
	for _, u := range []models.UserLocation{
		{Latitude: 90, Longitude: 180},
		{Latitude: -90, Longitude: -180},
	} {
		if err := Validate(u); err != nil {
			t.Errorf("expected %+v to be valid, got %v", u, err)
		}
	}
}

func TestNewSubscriber_DefaultTopic(t *testing.T) {
	sub := NewSubscriber(nil, "", &recordingSink{})
	if sub.topic != "safespot/user/location" {
		t.Errorf("expected default topic, got %s", sub.topic)
	}
}
