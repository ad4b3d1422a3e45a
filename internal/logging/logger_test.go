package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	require.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	require.Equal(t, zerolog.ErrorLevel, ParseLevel(" ERROR "))
	require.Equal(t, zerolog.InfoLevel, ParseLevel("bogus"))
}

func TestRecentKeepsComponentEntries(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf, RecentCapacity: 8})
	t.Cleanup(func() { Init(DefaultConfig()) })
	ClearRecent()

	coord := Component("preview")
	channelLog := WithChannel(coord, "c1")
	channelLog.Info().Msg("store created")
	busLog := Component("bus")
	busLog.Warn().Msg("dropped")
	coord.Debug().Msg("sweep")

	entries := Recent("preview", 0)
	require.Len(t, entries, 2)
	require.Equal(t, "store created", entries[0].Message)
	require.Equal(t, "c1", entries[0].ChannelID)
	require.Equal(t, "info", entries[0].Level)
	require.Equal(t, "sweep", entries[1].Message)

	require.Len(t, Recent("", 0), 3)
	require.Contains(t, buf.String(), `"component":"bus"`)
}

func TestRecentRingWrapsAndLimits(t *testing.T) {
	Init(Config{Level: "info", Format: "json", Output: &bytes.Buffer{}, RecentCapacity: 3})
	t.Cleanup(func() { Init(DefaultConfig()) })
	ClearRecent()

	for _, msg := range []string{"one", "two", "three", "four", "five"} {
		Logger.Info().Msg(msg)
	}

	entries := Recent("", 0)
	require.Len(t, entries, 3)
	require.Equal(t, "three", entries[0].Message)
	require.Equal(t, "five", entries[2].Message)

	last := Recent("", 1)
	require.Len(t, last, 1)
	require.Equal(t, "five", last[0].Message)
}
