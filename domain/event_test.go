package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	events := []Event{
		AppointmentCreated{ID: 7, Description: "Dentist", Date: "2024-01-01", Time: "09:00"},
		AppointmentDeleted{ID: 7},
		DetailCreated{AppointmentID: 7, Text: "Bring your insurance card", Generated: true},
		DetailCreated{AppointmentID: 2, Text: "manual note", Generated: false},
		DetailDeleted{ID: 3},
	}

	for _, original := range events {
		body, err := EncodeEvent(original)
		require.NoError(t, err)

		decoded, err := DecodeEvent(body)
		require.NoError(t, err)
		assert.Equal(t, original, decoded)
	}
}

func TestEncodeEventWireShape(t *testing.T) {
	body, err := EncodeEvent(AppointmentCreated{ID: 7, Description: "Dentist", Date: "2024-01-01", Time: "09:00"})
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.JSONEq(t, `"AppointmentCreated"`, string(raw["eventType"]))
	assert.JSONEq(t, `{"id":7,"description":"Dentist","date":"2024-01-01","time":"09:00"}`, string(raw["details"]))
}

func TestDecodeEventUnknownType(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"eventType":"AppointmentRescheduled","details":{"id":1}}`))
	assert.ErrorIs(t, err, ErrUnknownEventType)
}

func TestDecodeEventMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":            `{{{`,
		"missing details":     `{"eventType":"AppointmentCreated"}`,
		"missing id":          `{"eventType":"AppointmentDeleted","details":{}}`,
		"negative id":         `{"eventType":"DetailDeleted","details":{"id":-2}}`,
		"wrong field type":    `{"eventType":"AppointmentCreated","details":{"id":"seven"}}`,
		"detail without appt": `{"eventType":"DetailCreated","details":{"text":"hi"}}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(body))
			assert.ErrorIs(t, err, ErrMalformedEvent)
		})
	}
}
