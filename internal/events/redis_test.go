package events

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMarshalRoundTripVariants(t *testing.T) {
	click := Clicked{ChannelID: "c1", ImageURL: "https://x/a.jpg?w=1"}
	data, err := Marshal(click)
	require.NoError(t, err)
	require.JSONEq(t, `{"kind":"images.preview_clicked","channel_id":"c1","image_url":"https://x/a.jpg?w=1"}`, string(data))

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, click, decoded)

	data, err = Marshal(ListChanged{ChannelID: "c2"})
	require.NoError(t, err)
	require.JSONEq(t, `{"kind":"images.list_changed","channel_id":"c2"}`, string(data))
}

func TestUnmarshalRejectsBadEnvelopes(t *testing.T) {
	_, err := Unmarshal([]byte(`{"kind":"images.list_changed"}`))
	require.ErrorIs(t, err, ErrMissingChannel)

	_, err = Unmarshal([]byte(`{"kind":"bogus","channel_id":"c1"}`))
	require.Error(t, err)

	_, err = Unmarshal([]byte(`not json`))
	require.Error(t, err)
}

func TestNewRedisBridgeValidation(t *testing.T) {
	_, err := NewRedisBridge(RedisBridgeConfig{Addr: "localhost:6379"}, nil)
	require.Error(t, err)

	_, err = NewRedisBridge(RedisBridgeConfig{Addrs: []string{" ", ""}}, NewInMemoryPublisher())
	require.Error(t, err)

	bridge, err := NewRedisBridge(RedisBridgeConfig{Addr: "localhost:6379"}, NewInMemoryPublisher())
	require.NoError(t, err)
	require.Equal(t, defaultRedisChannel, bridge.channel)
	require.NoError(t, bridge.Close())
}

func TestRedisBridgeRelayPublishesLocally(t *testing.T) {
	local := NewInMemoryPublisher()
	bridge, err := NewRedisBridge(RedisBridgeConfig{Addr: "localhost:6379"}, local)
	require.NoError(t, err)
	defer bridge.Close()

	var got []Event
	require.NoError(t, local.Subscribe("sink", Filter{}, func(event Event) {
		got = append(got, event)
	}))

	bridge.relay(context.Background(), `{"kind":"images.list_changed","channel_id":"c1"}`)
	bridge.relay(context.Background(), `garbage`)

	require.Equal(t, []Event{ListChanged{ChannelID: "c1"}}, got)
}

func TestRedisBridgeIntegration(t *testing.T) {
	addr := os.Getenv("PREVIEW_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PREVIEW_TEST_REDIS_ADDR not set")
	}

	local := NewInMemoryPublisher()
	bridge, err := NewRedisBridge(RedisBridgeConfig{
		Addr:    addr,
		Channel: "imagepreview:test:" + NewSubscriptionID(),
	}, local)
	require.NoError(t, err)
	defer bridge.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, bridge.Ping(ctx))

	received := make(chan Event, 1)
	require.NoError(t, local.Subscribe("sink", Filter{Kinds: []Kind{KindClicked}}, func(event Event) {
		select {
		case received <- event:
		default:
		}
	}))

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- bridge.Run(runCtx) }()

	want := Clicked{ChannelID: "c1", ImageURL: "https://x/a.jpg"}
	require.Eventually(t, func() bool {
		_ = bridge.Publish(ctx, want)
		select {
		case got := <-received:
			return got == want
		default:
			return false
		}
	}, 4*time.Second, 100*time.Millisecond)

	stop()
	require.NoError(t, <-done)
}
