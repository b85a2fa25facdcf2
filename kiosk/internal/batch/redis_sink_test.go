package batch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Krimson/triage-kiosk/kiosk/internal/triage"
)

func TestRedisSink_Publish(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, "kiosk:sessions")
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	sink := NewRedisSinkFromClient(client, "kiosk:sessions")
	require.NoError(t, sink.Ping(ctx))

	batch := Batch{
		Seq:     7,
		T0:      time.Unix(1700000000, 0).UTC(),
		T1:      time.Unix(1700000060, 0).UTC(),
		Records: []Record{record("a", triage.Red), record("b", triage.Green)},
	}
	require.NoError(t, sink.Consume(ctx, batch))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "kiosk:sessions", msg.Channel)

	var got Batch
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, uint64(7), got.Seq)
	require.Len(t, got.Records, 2)
	assert.Equal(t, triage.Red, got.Records[0].Color)
	assert.Equal(t, "a", got.Records[0].SessionID)
	require.NotNil(t, got.Records[1].BPM)
	assert.InDelta(t, 88.0, *got.Records[1].BPM, 1e-9)
}

func TestRedisSink_Unavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	sink := NewRedisSink(addr, "", 0, "kiosk:sessions")
	defer sink.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.Error(t, sink.Consume(ctx, Batch{Seq: 1, Records: []Record{record("a", triage.Green)}}))
}

func TestMultiSink_CollectsErrors(t *testing.T) {
	ok := &TestSink{}
	failing := &TestSink{err: errors.New("boom")}
	multi := MultiSink{failing, ok}

	err := multi.Consume(context.Background(), Batch{Seq: 1})
	assert.Error(t, err)
	assert.Len(t, ok.GetBatches(), 1, "healthy sink must still receive the batch")
	assert.Len(t, failing.GetBatches(), 1)
}
