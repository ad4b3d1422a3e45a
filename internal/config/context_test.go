package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestContext_String(t *testing.T) {
	tests := []struct {
		name string
		ctx  Context
		want string
	}{
		{
			name: "empty",
			ctx:  Context{},
			want: "(no channel set)",
		},
		{
			name: "with channel",
			ctx:  Context{ChannelID: "general"},
			want: "channel:general",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ctx.String(); got != tt.want {
				t.Errorf("Context.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContext_ResolveChannel(t *testing.T) {
	tests := []struct {
		name     string
		ctx      *Context
		explicit string
		want     string
		wantErr  error
	}{
		{name: "explicit wins", ctx: &Context{ChannelID: "saved"}, explicit: "given", want: "given"},
		{name: "falls back to saved", ctx: &Context{ChannelID: "saved"}, explicit: "  ", want: "saved"},
		{name: "nil context", ctx: nil, explicit: "given", want: "given"},
		{name: "nothing set", ctx: &Context{}, wantErr: ErrNoChannel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.ctx.ResolveChannel(tt.explicit)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ResolveChannel() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveChannel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContext_SetChannelAndClear(t *testing.T) {
	ctx := &Context{}
	ctx.SetChannel("  random ")
	if ctx.ChannelID != "random" {
		t.Errorf("ChannelID = %q, want random", ctx.ChannelID)
	}
	if ctx.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set")
	}

	ctx.Clear()
	if !ctx.IsEmpty() {
		t.Error("context should be empty after Clear()")
	}
}

func TestContextStore_SaveLoad(t *testing.T) {
	store := NewContextStore(filepath.Join(t.TempDir(), "nested", "context.yaml"))

	ctx := &Context{}
	ctx.SetChannel("c-42")

	if err := store.Save(ctx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.ChannelID != "c-42" {
		t.Errorf("ChannelID = %v, want c-42", loaded.ChannelID)
	}
}

func TestContextStore_LoadEmpty(t *testing.T) {
	store := NewContextStore(filepath.Join(t.TempDir(), "context.yaml"))

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !loaded.IsEmpty() {
		t.Error("Load() should return empty context for non-existent file")
	}
}

func TestContextStore_LoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "context.yaml")
	if err := os.WriteFile(path, []byte("channel: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewContextStore(path).Load(); err == nil {
		t.Fatal("Load() should fail on malformed yaml")
	}
}

func TestContextStore_Clear(t *testing.T) {
	contextPath := filepath.Join(t.TempDir(), "context.yaml")
	store := NewContextStore(contextPath)

	if err := store.Save(&Context{ChannelID: "general"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(contextPath); os.IsNotExist(err) {
		t.Fatal("context file should exist after save")
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := os.Stat(contextPath); !os.IsNotExist(err) {
		t.Error("context file should be removed after clear")
	}

	// Clearing twice is fine.
	if err := store.Clear(); err != nil {
		t.Fatalf("second Clear() error = %v", err)
	}
}
