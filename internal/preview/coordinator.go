package preview

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tOgg1/imagepreview/internal/clock"
	"github.com/tOgg1/imagepreview/internal/events"
	"github.com/tOgg1/imagepreview/internal/imagekey"
	"github.com/tOgg1/imagepreview/internal/imagesource"
	"github.com/tOgg1/imagepreview/internal/logging"
)

// Bus is the part of the event bus the Coordinator listens on.
type Bus interface {
	Subscribe(id string, filter events.Filter, handler events.EventHandler) error
	Unsubscribe(id string) error
}

// channel is the coordinator's per-channel bookkeeping. All fields except
// store are guarded by Coordinator.mu.
type channel struct {
	id     string
	store  *channelStore
	logger zerolog.Logger

	// index maps normalized image keys to positions in the store's images.
	// nil means not built for the current list.
	index map[string]int

	subscribers int
	phase       Phase
	resumePhase Phase
	debounce    clock.Timer
	debounceGen uint64
	grace       clock.Timer
	lastRefresh time.Time
}

func (ch *channel) setPhase(to Phase) {
	if !ch.phase.CanTransition(to) {
		ch.logger.Warn().
			Stringer("from", ch.phase).
			Stringer("to", to).
			Msg("unexpected phase transition")
	}
	ch.phase = to
}

type subscriptionRef struct {
	channelID string
	ch        *channel
}

// Coordinator owns every channel's preview store. It is safe for concurrent
// use; subscriber callbacks run synchronously on the goroutine that caused
// the update and may call back into the Coordinator.
type Coordinator struct {
	cfg      Config
	source   imagesource.Source
	bus      Bus
	clock    clock.Clock
	keys     *imagekey.Normalizer
	logger   zerolog.Logger
	handlers map[events.Kind]events.EventHandler

	ctx    context.Context
	cancel context.CancelFunc

	mu               sync.Mutex
	closed           bool
	channels         map[string]*channel
	subs             map[string]subscriptionRef
	totalSubscribers int
	busSubscriptions []string
	sweep            clock.Timer
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock replaces the wall clock, e.g. with a clock.Fake in tests.
func WithClock(c clock.Clock) Option {
	return func(co *Coordinator) {
		co.clock = c
	}
}

// WithNormalizer replaces the process-wide key normalizer.
func WithNormalizer(n *imagekey.Normalizer) Option {
	return func(co *Coordinator) {
		co.keys = n
	}
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(co *Coordinator) {
		co.logger = l
	}
}

// New builds a Coordinator, subscribes it to bus (when non-nil) and starts
// the periodic sweep. Call Close to undo both.
func New(cfg Config, source imagesource.Source, bus Bus, opts ...Option) (*Coordinator, error) {
	if source == nil {
		return nil, ErrNilSource
	}

	c := &Coordinator{
		cfg:      cfg.withDefaults(),
		source:   source,
		bus:      bus,
		clock:    clock.Real(),
		keys:     imagekey.Default(),
		logger:   logging.Component("preview"),
		channels: make(map[string]*channel),
		subs:     make(map[string]subscriptionRef),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.handlers = map[events.Kind]events.EventHandler{
		events.KindListChanged: func(e events.Event) {
			if ev, ok := e.(events.ListChanged); ok {
				c.onListChanged(ev.ChannelID)
			}
		},
		events.KindClicked: func(e events.Event) {
			if ev, ok := e.(events.Clicked); ok {
				c.onClicked(ev.ChannelID, ev.ImageURL)
			}
		},
	}

	if bus != nil {
		for _, kind := range []events.Kind{events.KindListChanged, events.KindClicked} {
			id := "preview-" + string(kind) + "-" + uuid.NewString()
			if err := bus.Subscribe(id, events.Filter{Kinds: []events.Kind{kind}}, c.handlers[kind]); err != nil {
				c.unsubscribeBus()
				c.cancel()
				return nil, err
			}
			c.busSubscriptions = append(c.busSubscriptions, id)
		}
	}

	c.mu.Lock()
	c.sweep = c.clock.AfterFunc(c.cfg.SweepInterval, c.runSweep)
	c.mu.Unlock()

	c.logger.Info().
		Dur("debounce", c.cfg.DebounceWindow).
		Dur("recency", c.cfg.RecencyWindow).
		Dur("grace", c.cfg.GracePeriod).
		Dur("sweep", c.cfg.SweepInterval).
		Msg("preview coordinator started")
	return c, nil
}

// Close unsubscribes from the bus, cancels every timer and drops all
// channels. Later calls are no-ops.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.sweep != nil {
		c.sweep.Stop()
		c.sweep = nil
	}
	for _, ch := range c.channels {
		c.destroyLocked(ch)
	}
	c.mu.Unlock()

	err := c.unsubscribeBus()
	c.cancel()
	c.logger.Info().Msg("preview coordinator closed")
	return err
}

func (c *Coordinator) unsubscribeBus() error {
	if c.bus == nil {
		return nil
	}
	var errs []error
	for _, id := range c.busSubscriptions {
		if err := c.bus.Unsubscribe(id); err != nil {
			errs = append(errs, err)
		}
	}
	c.busSubscriptions = nil
	return errors.Join(errs...)
}

// Handle dispatches an event through the handler table. It is what the bus
// subscriptions call and may also be used to feed events directly.
func (c *Coordinator) Handle(event events.Event) {
	if event == nil {
		return
	}
	handler, ok := c.handlers[event.Kind()]
	if !ok {
		c.logger.Debug().Str("kind", string(event.Kind())).Msg("ignoring unknown event kind")
		return
	}
	handler(event)
}

// GetPreviewState returns the channel's snapshot, creating and populating
// its store on first use. A non-empty currentImageURL is resolved to an
// index and applied before the snapshot is taken.
func (c *Coordinator) GetPreviewState(channelID, currentImageURL string) State {
	ch, err := c.ensureChannel(channelID)
	if err != nil {
		return State{Images: []PreviewImage{}}
	}
	if currentImageURL != "" {
		c.activate(ch, currentImageURL)
	}
	return ch.store.getState().Clone()
}

// Subscribe registers fn for the channel's snapshots. fn is called once
// before Subscribe returns and again after every applied update. The
// returned function unsubscribes; it is idempotent.
func (c *Coordinator) Subscribe(channelID string, fn Subscriber) func() {
	if fn == nil {
		return func() {}
	}
	ch, err := c.ensureChannel(channelID)
	if err != nil {
		c.logger.Debug().Err(err).Str("channel_id", channelID).Msg("subscribe ignored")
		return func() {}
	}

	id := uuid.NewString()
	c.mu.Lock()
	if c.channels[channelID] != ch {
		// Destroyed between creation and registration.
		c.mu.Unlock()
		return c.Subscribe(channelID, fn)
	}
	ch.subscribers++
	c.totalSubscribers++
	c.subs[id] = subscriptionRef{channelID: channelID, ch: ch}
	if ch.grace != nil {
		ch.grace.Stop()
		ch.grace = nil
		ch.logger.Debug().Msg("resubscribed within grace period")
	}
	c.mu.Unlock()

	remove := ch.store.subscribe(fn)

	var once sync.Once
	return func() {
		once.Do(func() {
			remove()
			c.release(id)
		})
	}
}

// RefreshChannelImages reloads the channel's images from the source and
// applies them if they differ from the current list. Channels without a
// store are left alone.
func (c *Coordinator) RefreshChannelImages(channelID string) {
	c.mu.Lock()
	ch := c.channels[channelID]
	c.mu.Unlock()
	if ch == nil {
		return
	}
	c.refresh(ch)
}

// ClearChannelCache tears down the channel's store, subscriptions and
// caches immediately. It never signals the image source.
func (c *Coordinator) ClearChannelCache(channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.channels[channelID]
	if ch == nil {
		return
	}
	c.destroyLocked(ch)
	ch.logger.Info().Msg("channel cache cleared")
}

// ChannelPhase reports the channel's state machine phase.
func (c *Coordinator) ChannelPhase(channelID string) (Phase, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.channels[channelID]
	if ch == nil {
		return PhaseIdle, false
	}
	return ch.phase, true
}

// ensureChannel returns the channel, creating it and loading its images
// from the source when absent. It fails only after Close.
func (c *Coordinator) ensureChannel(channelID string) (*channel, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if ch := c.channels[channelID]; ch != nil {
		c.mu.Unlock()
		return ch, nil
	}
	c.mu.Unlock()

	logger := logging.WithChannel(c.logger, channelID)
	initial := State{Images: []PreviewImage{}}
	if images, err := c.load(channelID); err != nil {
		logger.Warn().Err(err).Msg("initial image load failed; starting empty")
	} else {
		initial.Images = images
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if ch := c.channels[channelID]; ch != nil {
		return ch, nil
	}
	ch := &channel{
		id:     channelID,
		store:  newChannelStore(initial, c.clock, c.cfg.RedundancyWindow, logger),
		logger: logger,
	}
	c.channels[channelID] = ch
	logger.Debug().Int("images", len(initial.Images)).Msg("channel store created")
	return ch, nil
}

// load fetches the channel's images and converts them to preview entries.
func (c *Coordinator) load(channelID string) ([]PreviewImage, error) {
	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.FetchTimeout)
	defer cancel()

	images, err := c.source.ImagesByChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	out := make([]PreviewImage, 0, len(images))
	for _, img := range images {
		download := c.source.DownloadURL(img.URL, imagesource.Size{})
		out = append(out, PreviewImage{
			Src:         download,
			DownloadURL: download,
		})
	}
	return out, nil
}

// refresh reloads the channel and applies the result when the list changed.
// A failed fetch leaves the store untouched.
func (c *Coordinator) refresh(ch *channel) bool {
	images, err := c.load(ch.id)
	if err != nil {
		ch.logger.Error().Err(err).Msg("image refresh failed")
		return false
	}

	applied := ch.store.update(func(current State) (State, bool) {
		if !c.listChanged(current.Images, images) {
			return current, false
		}
		return State{Images: images, ActiveIndex: clampIndex(current.ActiveIndex, len(images))}, true
	})
	if applied {
		c.mu.Lock()
		ch.index = nil
		c.mu.Unlock()
		ch.logger.Debug().Int("images", len(images)).Msg("image list refreshed")
	}
	return applied
}

// listChanged compares two lists position by position using normalized keys.
func (c *Coordinator) listChanged(current, next []PreviewImage) bool {
	if len(current) != len(next) {
		return true
	}
	for i := range next {
		if c.keys.Normalize(next[i].Src) != c.keys.Normalize(current[i].Src) {
			return true
		}
	}
	return false
}

func clampIndex(index, length int) int {
	if length == 0 || index < 0 {
		return 0
	}
	if index > length-1 {
		return length - 1
	}
	return index
}
