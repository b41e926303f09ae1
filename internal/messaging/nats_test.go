package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisconnectedClient(t *testing.T) {
	nc := Disconnected()
	assert.False(t, nc.Connected())
	assert.ErrorIs(t, nc.Publish("reservation.created", map[string]string{"code": "RES-ABCD1234"}), ErrNotConnected)

	_, err := nc.SubscribeQueue("reservation.created", "pierre-consumers", nil)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NoError(t, nc.Close())
}
