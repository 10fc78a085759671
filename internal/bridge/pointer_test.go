package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/waybridge/internal/host"
	"github.com/bnema/waybridge/internal/remote"
)

func TestPointerPreconditions(t *testing.T) {
	cases := []struct {
		name        string
		matchOutput bool
		matchSeat   bool
		forwarding  bool
		grab        bool
		wantPointer bool
	}{
		{"all conditions hold", true, true, true, false, true},
		{"no matched output", false, true, true, false, false},
		{"no matched seat", true, false, true, false, false},
		{"forwarding off", true, true, false, false, false},
		{"grab active", true, true, true, true, false},
		{"nothing matched", false, false, false, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			session := newFakeSession()
			b := newTestBridge(session, newFakeBus(), nil)

			feedRemote(t, b, remote.OutputAdded{Global: 10}, remote.SeatAdded{Global: 20})
			if tc.matchOutput {
				feedRemote(t, b, remote.OutputNamed{Global: 10, Name: "HDMI-A-1"})
			} else {
				feedRemote(t, b, remote.OutputNamed{Global: 10, Name: "DP-3"})
			}
			if tc.matchSeat {
				feedRemote(t, b, remote.SeatNamed{Global: 20, Name: "seat0"})
			} else {
				feedRemote(t, b, remote.SeatNamed{Global: 20, Name: "seat1"})
			}
			feedHost(t, b, host.PropertyChange{Name: host.PropInputForwarding, Data: tc.forwarding})
			feedHost(t, b, host.PropertyChange{Name: host.PropForceGrabCursor, Data: tc.grab})

			if tc.wantPointer {
				require.NotNil(t, b.pointer)
				assert.Equal(t, uint32(20), b.boundSeat)
				assert.Equal(t, uint32(10), b.boundOutput)
			} else {
				assert.Nil(t, b.pointer)
			}
		})
	}
}

func TestPointerCreationOrderIndependent(t *testing.T) {
	type step func(t *testing.T, b *Bridge)

	output := func(t *testing.T, b *Bridge) {
		feedRemote(t, b, remote.OutputAdded{Global: 10}, remote.OutputNamed{Global: 10, Name: "HDMI-A-1"})
	}
	seat := func(t *testing.T, b *Bridge) {
		feedRemote(t, b, remote.SeatAdded{Global: 20}, remote.SeatNamed{Global: 20, Name: "seat0"})
	}
	forwarding := func(t *testing.T, b *Bridge) {
		feedHost(t, b, host.PropertyChange{Name: host.PropInputForwarding, Data: true})
	}

	orders := map[string][]step{
		"output seat forwarding": {output, seat, forwarding},
		"output forwarding seat": {output, forwarding, seat},
		"seat output forwarding": {seat, output, forwarding},
		"seat forwarding output": {seat, forwarding, output},
		"forwarding output seat": {forwarding, output, seat},
		"forwarding seat output": {forwarding, seat, output},
	}

	for name, steps := range orders {
		t.Run(name, func(t *testing.T) {
			session := newFakeSession()
			b := newTestBridge(session, newFakeBus(), nil)
			// Forwarding defaults on; switch it off so the forwarding
			// step is a real precondition in every ordering.
			feedHost(t, b, host.PropertyChange{Name: host.PropInputForwarding, Data: false})

			for i, s := range steps {
				s(t, b)
				if i < len(steps)-1 {
					assert.Nil(t, b.pointer, "pointer must not exist before the last precondition")
				}
			}
			require.NotNil(t, b.pointer)
			assert.Len(t, session.pointers, 1, "exactly one device over the whole sequence")
		})
	}
}

func TestForwardingDefaultsOnAtStartup(t *testing.T) {
	session := newFakeSession()
	bus := newFakeBus()
	b := newTestBridge(session, bus, nil)

	// The host has never set the control properties, so the startup
	// reads fail and the defaults stand: forwarding on, grab off.
	b.fetchInitialFlags()
	feedRemote(t, b,
		remote.OutputAdded{Global: 10},
		remote.OutputNamed{Global: 10, Name: "HDMI-A-1"},
		remote.SeatAdded{Global: 20},
		remote.SeatNamed{Global: 20, Name: "seat0"},
	)

	require.NotNil(t, b.pointer, "devices come up without any flag property")
	assert.NotNil(t, b.clipboard)
}

func TestPointerDestroyedOnForwardingFlip(t *testing.T) {
	session := newFakeSession()
	bus := newFakeBus()
	b := newTestBridge(session, bus, nil)
	matchAll(t, b)
	require.NotNil(t, b.pointer)

	feedHost(t, b, host.PropertyChange{Name: host.PropInputForwarding, Data: false})
	assert.Nil(t, b.pointer)
	assert.True(t, session.pointers[0].destroyed)
	assert.Equal(t, 0, bus.observed[host.PropMousePos], "pointer position no longer observed")

	feedHost(t, b, host.PropertyChange{Name: host.PropInputForwarding, Data: true})
	require.NotNil(t, b.pointer)
	assert.Len(t, session.pointers, 2)
	assert.Equal(t, 1, bus.observed[host.PropMousePos])
}

func TestPointerRebindsWhenMatchMoves(t *testing.T) {
	session := newFakeSession()
	b := newTestBridge(session, newFakeBus(), nil)
	matchAll(t, b)
	require.NotNil(t, b.pointer)

	// A second output advertises the configured name; the latest match
	// wins and the device follows it.
	feedRemote(t, b,
		remote.OutputAdded{Global: 11},
		remote.OutputNamed{Global: 11, Name: "HDMI-A-1"},
	)

	require.Len(t, session.pointers, 2)
	assert.True(t, session.pointers[0].destroyed, "old binding must be destroyed")
	assert.False(t, session.pointers[1].destroyed)
	assert.Equal(t, uint32(11), b.boundOutput)
}

func TestPointerDestroyedBeforeOutputRelease(t *testing.T) {
	session := newFakeSession()
	b := newTestBridge(session, newFakeBus(), nil)
	matchAll(t, b)
	require.NotNil(t, b.pointer)

	feedRemote(t, b, remote.OutputRemoved{Global: 10})
	assert.Nil(t, b.pointer)
	assert.True(t, session.pointers[0].destroyed)
	assert.Equal(t, []string{"output 10"}, session.released)
}

func TestMotionForwarding(t *testing.T) {
	session := newFakeSession()
	b := newTestBridge(session, newFakeBus(), nil)
	matchAll(t, b)
	setMetrics(t, b, 1920, 1080, 0, 0, 0, 0, 1280, 720)

	feedHost(t, b, host.PropertyChange{Name: host.PropMousePos, Data: map[string]any{
		"x": float64(960), "y": float64(540),
	}})

	p := session.pointers[0]
	require.Len(t, p.motions, 1)
	assert.Equal(t, uint32(640), p.motions[0].x)
	assert.Equal(t, uint32(360), p.motions[0].y)
	assert.Equal(t, uint32(1280), p.motions[0].xExtent)
	assert.Equal(t, uint32(720), p.motions[0].yExtent)
	assert.Equal(t, 1, p.frames, "every motion is framed")
}

func TestMotionClampsIntoMargins(t *testing.T) {
	session := newFakeSession()
	b := newTestBridge(session, newFakeBus(), nil)
	matchAll(t, b)
	setMetrics(t, b, 1920, 1080, 100, 60, 30, 10, 1280, 720)

	// Inside the left letterbox margin: clamps to video x 0.
	feedHost(t, b, host.PropertyChange{Name: host.PropMousePos, Data: map[string]any{
		"x": float64(40), "y": float64(540),
	}})

	p := session.pointers[0]
	require.Len(t, p.motions, 1)
	assert.Equal(t, uint32(0), p.motions[0].x)
}

func TestMotionSkippedWithoutMetrics(t *testing.T) {
	session := newFakeSession()
	b := newTestBridge(session, newFakeBus(), nil)
	matchAll(t, b)

	// No osd-dimensions or video-params seen yet.
	feedHost(t, b, host.PropertyChange{Name: host.PropMousePos, Data: map[string]any{
		"x": float64(10), "y": float64(10),
	}})
	assert.Empty(t, session.pointers[0].motions)

	// Degenerate drawing area: margins swallow everything.
	setMetrics(t, b, 200, 200, 100, 100, 0, 0, 1280, 720)
	feedHost(t, b, host.PropertyChange{Name: host.PropMousePos, Data: map[string]any{
		"x": float64(10), "y": float64(10),
	}})
	assert.Empty(t, session.pointers[0].motions)
}
