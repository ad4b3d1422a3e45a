package imagesource

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestSource(t *testing.T, opts ...SQLiteOption) *SQLiteSource {
	t.Helper()
	src, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "data", "images.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func TestSQLiteSource_EmptyChannel(t *testing.T) {
	src := openTestSource(t)

	images, err := src.ImagesByChannel(context.Background(), "nobody")
	require.NoError(t, err)
	require.NotNil(t, images)
	require.Empty(t, images)
}

func TestSQLiteSource_AddOrdersBySequence(t *testing.T) {
	ctx := context.Background()
	src := openTestSource(t)

	require.NoError(t, src.AddImage(ctx, "c1", Image{URL: "file/b.jpg", Sequence: 20}))
	require.NoError(t, src.AddImage(ctx, "c1", Image{URL: "file/a.jpg", Sequence: 10, Width: 640, Height: 480}))
	require.NoError(t, src.AddImage(ctx, "c1", Image{URL: "file/c.jpg"}))
	require.NoError(t, src.AddImage(ctx, "c2", Image{URL: "file/z.jpg"}))

	images, err := src.ImagesByChannel(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, images, 3)
	require.Equal(t, "file/a.jpg", images[0].URL)
	require.Equal(t, 640, images[0].Width)
	require.Equal(t, "file/b.jpg", images[1].URL)
	require.Equal(t, "file/c.jpg", images[2].URL)
	require.Equal(t, int64(21), images[2].Sequence)

	channels, err := src.Channels(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"c1", "c2"}, channels)
}

func TestSQLiteSource_ReAddUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	src := openTestSource(t)

	require.NoError(t, src.AddImage(ctx, "c1", Image{URL: "a.jpg", Sequence: 1}))
	require.NoError(t, src.AddImage(ctx, "c1", Image{URL: "b.jpg", Sequence: 2}))
	require.NoError(t, src.AddImage(ctx, "c1", Image{URL: "a.jpg", Sequence: 3}))

	images, err := src.ImagesByChannel(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, images, 2)
	require.Equal(t, "b.jpg", images[0].URL)
	require.Equal(t, "a.jpg", images[1].URL)
}

func TestSQLiteSource_ValidationErrors(t *testing.T) {
	ctx := context.Background()
	src := openTestSource(t)

	require.Error(t, src.AddImage(ctx, " ", Image{URL: "a.jpg"}))
	require.Error(t, src.AddImage(ctx, "c1", Image{}))

	_, err := OpenSQLite(ctx, "  ")
	require.Error(t, err)
}

func TestSQLiteSource_NotifiesOnMutation(t *testing.T) {
	ctx := context.Background()
	var notified []string
	src := openTestSource(t, WithNotifier(NotifierFunc(func(_ context.Context, channelID string) {
		notified = append(notified, channelID)
	})))

	require.NoError(t, src.AddImage(ctx, "c1", Image{URL: "a.jpg"}))
	removed, err := src.RemoveImage(ctx, "c1", "a.jpg")
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = src.RemoveImage(ctx, "c1", "a.jpg")
	require.NoError(t, err)
	require.False(t, removed)

	require.Equal(t, []string{"c1", "c1"}, notified)
}

func TestSQLiteSource_DownloadURL(t *testing.T) {
	src := openTestSource(t, WithBaseURL("https://cdn.example.com/"))

	require.Equal(t, "https://cdn.example.com/file/a.jpg", src.DownloadURL("file/a.jpg", Size{}))
	require.Equal(t, "https://other.example.com/a.jpg", src.DownloadURL("https://other.example.com/a.jpg", Size{}))
}
