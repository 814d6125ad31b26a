package natsadapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/geopin/internal/core/domain"
)

func TestNewPublisher_ExistingStream(t *testing.T) {
	conn := runServer(t)

	_, err := NewPublisher(conn)
	require.NoError(t, err)
	_, err = NewPublisher(conn)
	require.NoError(t, err)
}

func TestPublisher_Notify(t *testing.T) {
	conn := runServer(t)
	pub, err := NewPublisher(conn)
	require.NoError(t, err)

	notice := domain.NewNotice(domain.NoticeStorageWrite, errors.New("disk full"))
	pub.Notify(context.Background(), notice)

	js, err := conn.JetStream()
	require.NoError(t, err)
	msg, err := js.GetLastMsg("GEOPIN_NOTICES", SubjectNotice)
	require.NoError(t, err)

	var got domain.Notice
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, notice.Kind, got.Kind)
	assert.Equal(t, notice.Message, got.Message)
	assert.Equal(t, "disk full", got.Err)
}

func TestPublisher_PublishState(t *testing.T) {
	conn := runServer(t)
	pub, err := NewPublisher(conn)
	require.NoError(t, err)

	sub, err := conn.SubscribeSync(SubjectState)
	require.NoError(t, err)
	require.NoError(t, conn.Flush())

	state := domain.SessionState{
		Version: 3,
		Markers: domain.MarkerCollection{{Coordinates: domain.Coordinate{Latitude: 1, Longitude: 2}}},
	}
	require.NoError(t, pub.PublishState(context.Background(), state))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)

	var got domain.SessionState
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, uint64(3), got.Version)
	assert.Equal(t, state.Markers, got.Markers)
}
