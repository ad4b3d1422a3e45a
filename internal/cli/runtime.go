package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tOgg1/imagepreview/internal/config"
	"github.com/tOgg1/imagepreview/internal/events"
	"github.com/tOgg1/imagepreview/internal/imagesource"
	"github.com/tOgg1/imagepreview/internal/logging"
	"github.com/tOgg1/imagepreview/internal/preview"
)

// errRedisRequired is returned by commands that only make sense when events
// can reach other processes.
var errRedisRequired = errors.New("redis is not configured (set redis.addr or PREVIEW_REDIS_ADDR)")

// contextStorePath overrides the context file location; empty means default.
var contextStorePath string

func contextStore() *config.ContextStore {
	return config.NewContextStore(contextStorePath)
}

// resolveChannel picks the channel from args[0] or the saved context.
func resolveChannel(args []string) (string, error) {
	explicit := ""
	if len(args) > 0 {
		explicit = args[0]
	}
	ctx, err := contextStore().Load()
	if err != nil {
		return "", err
	}
	return ctx.ResolveChannel(explicit)
}

// openImageStore opens the configured SQLite image store.
func openImageStore(ctx context.Context, opts ...imagesource.SQLiteOption) (*imagesource.SQLiteSource, error) {
	base := []imagesource.SQLiteOption{
		imagesource.WithBaseURL(appConfig.Images.BaseURL),
		imagesource.WithBusyTimeout(appConfig.Database.BusyTimeoutMs),
	}
	return imagesource.OpenSQLite(ctx, appConfig.Database.Path, append(base, opts...)...)
}

// openBridge connects to Redis when configured. It returns nil, nil when
// Redis is disabled.
func openBridge(ctx context.Context, local events.Publisher) (*events.RedisBridge, error) {
	if !appConfig.RedisEnabled() {
		return nil, nil
	}
	bridge, err := events.NewRedisBridge(events.RedisBridgeConfig{
		Addr:        appConfig.Redis.Addr,
		Username:    appConfig.Redis.Username,
		Password:    appConfig.Redis.Password,
		DB:          appConfig.Redis.DB,
		Channel:     appConfig.Redis.Channel,
		DialTimeout: 5 * time.Second,
	}, local)
	if err != nil {
		return nil, err
	}
	if err := bridge.Ping(ctx); err != nil {
		_ = bridge.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", logging.Redact(appConfig.Redis.Addr), err)
	}
	return bridge, nil
}

// runtime bundles what serve and watch need to run a coordinator.
type runtime struct {
	store       *imagesource.SQLiteSource
	bus         *events.InMemoryPublisher
	bridge      *events.RedisBridge
	coordinator *preview.Coordinator
}

// newRuntime wires the image store, event bus, optional Redis bridge and
// coordinator together. Local image mutations announce list changes on the
// bus (and through Redis when bridged).
func newRuntime(ctx context.Context) (*runtime, error) {
	rt := &runtime{bus: events.NewInMemoryPublisher()}

	bridge, err := openBridge(ctx, rt.bus)
	if err != nil {
		return nil, err
	}
	rt.bridge = bridge

	store, err := openImageStore(ctx, imagesource.WithNotifier(imagesource.NotifierFunc(rt.announce)))
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.store = store

	coordinator, err := preview.New(appConfig.PreviewSettings(), store, rt.bus)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.coordinator = coordinator
	return rt, nil
}

// announce publishes a list change for channelID. With a bridge the event
// round-trips through Redis so every process sees it once.
func (rt *runtime) announce(ctx context.Context, channelID string) {
	event := events.ListChanged{ChannelID: channelID}
	if rt.bridge != nil {
		if err := rt.bridge.Publish(ctx, event); err != nil {
			logging.Logger.Warn().Err(err).Str("channel_id", channelID).Msg("failed to publish list change")
		}
		return
	}
	rt.bus.Publish(ctx, event)
}

func (rt *runtime) close() {
	if rt.coordinator != nil {
		_ = rt.coordinator.Close()
	}
	rt.bus.Close()
	if rt.bridge != nil {
		_ = rt.bridge.Close()
	}
	if rt.store != nil {
		_ = rt.store.Close()
	}
}

// publishRemote sends an event to other processes through Redis.
func publishRemote(ctx context.Context, event events.Event) error {
	bridge, err := openBridge(ctx, events.NewInMemoryPublisher())
	if err != nil {
		return err
	}
	if bridge == nil {
		return errRedisRequired
	}
	defer bridge.Close()
	return bridge.Publish(ctx, event)
}
