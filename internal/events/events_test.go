package events

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishJSON(t *testing.T) {
	bus := NewEventBus()

	var received []BookingAlert
	bus.Subscribe(EventBookingCreated, func(event *Event) error {
		var alert BookingAlert
		require.NoError(t, json.Unmarshal(event.Payload, &alert))
		received = append(received, alert)
		return nil
	})

	err := bus.PublishJSON(EventBookingCreated, BookingAlert{BookingID: 1, CarName: "Corolla", Total: 315})
	require.NoError(t, err)

	require.Len(t, received, 1)
	assert.Equal(t, int64(1), received[0].BookingID)
	assert.Equal(t, "Corolla", received[0].CarName)
}

func TestEventBus_TypeIsolation(t *testing.T) {
	bus := NewEventBus()

	created, paid := 0, 0
	bus.Subscribe(EventBookingCreated, func(*Event) error { created++; return nil })
	bus.Subscribe(EventBookingPaid, func(*Event) error { paid++; return nil })

	require.NoError(t, bus.PublishJSON(EventBookingPaid, BookingAlert{BookingID: 1}))
	assert.Zero(t, created)
	assert.Equal(t, 1, paid)
}

func TestEventBus_HandlerErrorDoesNotStopFanout(t *testing.T) {
	bus := NewEventBus()

	second := false
	bus.Subscribe(EventBookingCreated, func(*Event) error { return errors.New("boom") })
	bus.Subscribe(EventBookingCreated, func(*Event) error { second = true; return nil })

	require.NoError(t, bus.PublishJSON(EventBookingCreated, BookingAlert{BookingID: 1}))
	assert.True(t, second)
}

func TestEventBus_NilSafe(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventBookingCreated, BookingAlert{}))
}
