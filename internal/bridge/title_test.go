package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/waybridge/internal/host"
	"github.com/bnema/waybridge/internal/remote"
)

func lastTitle(t *testing.T, bus *fakeBus) string {
	t.Helper()
	v, ok := bus.lastSet(host.PropMediaTitle)
	require.True(t, ok, "no title was set")
	title, ok := v.(string)
	require.True(t, ok)
	return title
}

func TestTitleFollowsEligibleWindow(t *testing.T) {
	session := newFakeSession()
	bus := newFakeBus()
	b := newTestBridge(session, bus, nil)

	feedRemote(t, b,
		remote.ToplevelOpened{ID: 1},
		remote.ToplevelTitle{ID: 1, Title: "Big Buck Bunny"},
		remote.ToplevelAppID{ID: 1, AppID: "org.example.player"},
	)
	// Not fullscreen yet: the commit must not produce a title.
	feedRemote(t, b, remote.ToplevelDone{ID: 1})
	_, wrote := bus.lastSet(host.PropMediaTitle)
	assert.False(t, wrote)

	feedRemote(t, b,
		remote.ToplevelFullscreen{ID: 1, Fullscreen: true},
		remote.ToplevelDone{ID: 1},
	)
	assert.Equal(t, "[org.example.player] Big Buck Bunny [wayland-9 HDMI-A-1 seat0]", lastTitle(t, bus))
}

func TestTitleRefreshesOnRename(t *testing.T) {
	session := newFakeSession()
	bus := newFakeBus()
	b := newTestBridge(session, bus, nil)

	feedRemote(t, b,
		remote.ToplevelOpened{ID: 1},
		remote.ToplevelTitle{ID: 1, Title: "Episode 1"},
		remote.ToplevelAppID{ID: 1, AppID: "player"},
		remote.ToplevelFullscreen{ID: 1, Fullscreen: true},
		remote.ToplevelDone{ID: 1},
	)
	require.Contains(t, lastTitle(t, bus), "Episode 1")

	// A title change alone does nothing until the commit point.
	feedRemote(t, b, remote.ToplevelTitle{ID: 1, Title: "Episode 2"})
	assert.Contains(t, lastTitle(t, bus), "Episode 1")

	feedRemote(t, b, remote.ToplevelDone{ID: 1})
	assert.Contains(t, lastTitle(t, bus), "Episode 2")
}

func TestTitleRevertsWhenFullscreenEnds(t *testing.T) {
	session := newFakeSession()
	bus := newFakeBus()
	b := newTestBridge(session, bus, nil)

	feedRemote(t, b,
		remote.ToplevelOpened{ID: 1},
		remote.ToplevelTitle{ID: 1, Title: "Movie"},
		remote.ToplevelAppID{ID: 1, AppID: "player"},
		remote.ToplevelFullscreen{ID: 1, Fullscreen: true},
		remote.ToplevelDone{ID: 1},
		remote.ToplevelFullscreen{ID: 1, Fullscreen: false},
		remote.ToplevelDone{ID: 1},
	)
	assert.Equal(t, "Remote desktop [wayland-9 HDMI-A-1 seat0]", lastTitle(t, bus))
}

func TestTitleRevertsOnClosure(t *testing.T) {
	session := newFakeSession()
	bus := newFakeBus()
	b := newTestBridge(session, bus, nil)

	feedRemote(t, b,
		remote.ToplevelOpened{ID: 1},
		remote.ToplevelTitle{ID: 1, Title: "Movie"},
		remote.ToplevelAppID{ID: 1, AppID: "player"},
		remote.ToplevelFullscreen{ID: 1, Fullscreen: true},
		remote.ToplevelDone{ID: 1},
		remote.ToplevelClosed{ID: 1},
	)
	assert.Equal(t, "Remote desktop [wayland-9 HDMI-A-1 seat0]", lastTitle(t, bus))
	assert.Contains(t, session.released, "toplevel 1")
}

func TestOnlyOneWindowDrivesTheTitle(t *testing.T) {
	session := newFakeSession()
	bus := newFakeBus()
	b := newTestBridge(session, bus, nil)

	feedRemote(t, b,
		remote.ToplevelOpened{ID: 1},
		remote.ToplevelTitle{ID: 1, Title: "First"},
		remote.ToplevelAppID{ID: 1, AppID: "a"},
		remote.ToplevelFullscreen{ID: 1, Fullscreen: true},
		remote.ToplevelDone{ID: 1},
		remote.ToplevelOpened{ID: 2},
		remote.ToplevelTitle{ID: 2, Title: "Second"},
		remote.ToplevelAppID{ID: 2, AppID: "b"},
		remote.ToplevelFullscreen{ID: 2, Fullscreen: true},
		remote.ToplevelDone{ID: 2},
	)
	assert.Contains(t, lastTitle(t, bus), "Second")

	// Closing the non-current window leaves the title alone.
	feedRemote(t, b, remote.ToplevelClosed{ID: 1})
	assert.Contains(t, lastTitle(t, bus), "Second")
}
