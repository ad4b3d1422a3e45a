package events

import (
	"context"
	"testing"
)

func TestFilter_Matches(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		event  Event
		want   bool
	}{
		{
			name:   "empty filter matches any event",
			filter: Filter{},
			event:  ListChanged{ChannelID: "c1"},
			want:   true,
		},
		{
			name:   "nil event returns false",
			filter: Filter{},
			event:  nil,
			want:   false,
		},
		{
			name:   "kind filter matches",
			filter: Filter{Kinds: []Kind{KindClicked}},
			event:  Clicked{ChannelID: "c1", ImageURL: "a.jpg"},
			want:   true,
		},
		{
			name:   "kind filter rejects non-matching",
			filter: Filter{Kinds: []Kind{KindClicked}},
			event:  ListChanged{ChannelID: "c1"},
			want:   false,
		},
		{
			name:   "multiple kinds - matches any",
			filter: Filter{Kinds: []Kind{KindClicked, KindListChanged}},
			event:  ListChanged{ChannelID: "c1"},
			want:   true,
		},
		{
			name:   "channel filter matches",
			filter: Filter{ChannelID: "c1"},
			event:  ListChanged{ChannelID: "c1"},
			want:   true,
		},
		{
			name:   "channel filter rejects non-matching",
			filter: Filter{ChannelID: "c1"},
			event:  ListChanged{ChannelID: "c2"},
			want:   false,
		},
		{
			name:   "combined filters - all must match",
			filter: Filter{Kinds: []Kind{KindListChanged}, ChannelID: "c1"},
			event:  Clicked{ChannelID: "c1"},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Matches(tt.event)
			if got != tt.want {
				t.Errorf("Filter.Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInMemoryPublisher_Subscribe(t *testing.T) {
	pub := NewInMemoryPublisher()

	handler := func(event Event) {}

	err := pub.Subscribe("sub-1", Filter{}, handler)
	if err != nil {
		t.Errorf("Subscribe() error = %v, want nil", err)
	}

	if pub.SubscriberCount() != 1 {
		t.Errorf("SubscriberCount() = %d, want 1", pub.SubscriberCount())
	}

	err = pub.Subscribe("sub-1", Filter{}, handler)
	if err != ErrSubscriptionExists {
		t.Errorf("Subscribe() duplicate error = %v, want %v", err, ErrSubscriptionExists)
	}

	err = pub.Subscribe("", Filter{}, handler)
	if err != ErrInvalidSubscriptionID {
		t.Errorf("Subscribe() empty ID error = %v, want %v", err, ErrInvalidSubscriptionID)
	}

	err = pub.Subscribe("sub-2", Filter{}, nil)
	if err != ErrNilHandler {
		t.Errorf("Subscribe() nil handler error = %v, want %v", err, ErrNilHandler)
	}
}

func TestInMemoryPublisher_Unsubscribe(t *testing.T) {
	pub := NewInMemoryPublisher()

	_ = pub.Subscribe("sub-1", Filter{}, func(event Event) {})

	if err := pub.Unsubscribe("sub-1"); err != nil {
		t.Errorf("Unsubscribe() error = %v, want nil", err)
	}

	if pub.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", pub.SubscriberCount())
	}

	if err := pub.Unsubscribe("sub-1"); err != ErrSubscriptionNotFound {
		t.Errorf("Unsubscribe() non-existent error = %v, want %v", err, ErrSubscriptionNotFound)
	}
}

func TestInMemoryPublisher_PublishInSubscriptionOrder(t *testing.T) {
	pub := NewInMemoryPublisher()
	ctx := context.Background()

	var order []string
	for _, id := range []string{"a", "b", "c"} {
		id := id
		_ = pub.Subscribe(id, Filter{}, func(event Event) {
			order = append(order, id)
		})
	}
	_ = pub.Unsubscribe("b")

	pub.Publish(ctx, ListChanged{ChannelID: "c1"})

	if len(order) != 2 || order[0] != "a" || order[1] != "c" {
		t.Errorf("handler order = %v, want [a c]", order)
	}
}

func TestInMemoryPublisher_PublishWithFilter(t *testing.T) {
	pub := NewInMemoryPublisher()
	ctx := context.Background()

	var listEvents, clickEvents int
	var lastClick Clicked

	_ = pub.Subscribe("list-sub", Filter{Kinds: []Kind{KindListChanged}}, func(event Event) {
		listEvents++
	})
	_ = pub.Subscribe("click-sub", Filter{Kinds: []Kind{KindClicked}}, func(event Event) {
		clickEvents++
		lastClick = event.(Clicked)
	})

	pub.Publish(ctx, ListChanged{ChannelID: "c1"})
	pub.Publish(ctx, Clicked{ChannelID: "c1", ImageURL: "https://x/a.jpg"})

	if listEvents != 1 {
		t.Errorf("listEvents = %d, want 1", listEvents)
	}
	if clickEvents != 1 {
		t.Errorf("clickEvents = %d, want 1", clickEvents)
	}
	if lastClick.ImageURL != "https://x/a.jpg" {
		t.Errorf("click url = %q", lastClick.ImageURL)
	}
}

func TestInMemoryPublisher_HandlerMayUnsubscribeDuringPublish(t *testing.T) {
	pub := NewInMemoryPublisher()
	ctx := context.Background()

	calls := 0
	_ = pub.Subscribe("once", Filter{}, func(event Event) {
		calls++
		_ = pub.Unsubscribe("once")
	})

	pub.Publish(ctx, ListChanged{ChannelID: "c1"})
	pub.Publish(ctx, ListChanged{ChannelID: "c1"})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestInMemoryPublisher_PublishNilOrCancelled(t *testing.T) {
	pub := NewInMemoryPublisher()

	called := false
	_ = pub.Subscribe("sub-1", Filter{}, func(event Event) {
		called = true
	})

	pub.Publish(context.Background(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pub.Publish(ctx, ListChanged{ChannelID: "c1"})

	if called {
		t.Error("handler was called for nil event or cancelled context")
	}
}

func TestInMemoryPublisher_Close(t *testing.T) {
	pub := NewInMemoryPublisher()
	_ = pub.Subscribe(NewSubscriptionID(), Filter{}, func(event Event) {})
	_ = pub.Subscribe(NewSubscriptionID(), Filter{}, func(event Event) {})

	pub.Close()

	if pub.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() after Close = %d, want 0", pub.SubscriberCount())
	}
}
