package bridge

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bnema/waybridge/internal/config"
	"github.com/bnema/waybridge/internal/host"
	"github.com/bnema/waybridge/internal/remote"
	"github.com/bnema/waybridge/internal/wm"
)

type setCall struct {
	name  string
	value any
}

type fakeBus struct {
	events    chan host.Event
	observed  map[string]int
	sets      []setCall
	getValues map[string]any
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		events:    make(chan host.Event, 16),
		observed:  make(map[string]int),
		getValues: make(map[string]any),
	}
}

func (f *fakeBus) Events() <-chan host.Event { return f.events }

func (f *fakeBus) Observe(name string) error {
	f.observed[name]++
	return nil
}

func (f *fakeBus) Unobserve(name string) error {
	f.observed[name]--
	return nil
}

func (f *fakeBus) Get(name string) (any, error) {
	v, ok := f.getValues[name]
	if !ok {
		return nil, fmt.Errorf("no such property %q", name)
	}
	return v, nil
}

func (f *fakeBus) Set(name string, value any) error {
	f.sets = append(f.sets, setCall{name: name, value: value})
	return nil
}

func (f *fakeBus) lastSet(name string) (any, bool) {
	for i := len(f.sets) - 1; i >= 0; i-- {
		if f.sets[i].name == name {
			return f.sets[i].value, true
		}
	}
	return nil, false
}

type motion struct {
	timeMs, x, y, xExtent, yExtent uint32
}

type fakePointer struct {
	seat, output uint32
	motions      []motion
	frames       int
	destroyed    bool
}

func (p *fakePointer) MotionAbsolute(timeMs, x, y, xExtent, yExtent uint32) error {
	p.motions = append(p.motions, motion{timeMs, x, y, xExtent, yExtent})
	return nil
}

func (p *fakePointer) Frame() error {
	p.frames++
	return nil
}

func (p *fakePointer) Destroy() error {
	p.destroyed = true
	return nil
}

type fakeSource struct {
	clip *fakeClipboard
	text string
	name string
}

func (s *fakeSource) Destroy() error {
	s.clip.log = append(s.clip.log, "destroy "+s.name)
	return nil
}

// fakeClipboard keeps an ordered log of installs, clears, and source
// destruction so tests can assert handover ordering.
type fakeClipboard struct {
	log       []string
	nsources  int
	destroyed bool
}

func (c *fakeClipboard) NewSource(text string, mimes []string) (remote.Source, error) {
	c.nsources++
	return &fakeSource{clip: c, text: text, name: fmt.Sprintf("src%d", c.nsources)}, nil
}

func (c *fakeClipboard) SetSelection(src remote.Source, primary bool) error {
	kind := "regular"
	if primary {
		kind = "primary"
	}
	if src == nil {
		c.log = append(c.log, "clear "+kind)
		return nil
	}
	c.log = append(c.log, fmt.Sprintf("install %s %s", src.(*fakeSource).name, kind))
	return nil
}

func (c *fakeClipboard) Destroy() error {
	c.destroyed = true
	return nil
}

type fakeOffer struct {
	payloads  map[string]string
	received  []string
	destroyed bool
}

func (o *fakeOffer) Receive(mime string) (io.ReadCloser, error) {
	payload, ok := o.payloads[mime]
	if !ok {
		return nil, fmt.Errorf("mime %q not offered", mime)
	}
	o.received = append(o.received, mime)
	return io.NopCloser(strings.NewReader(payload)), nil
}

func (o *fakeOffer) Destroy() error {
	o.destroyed = true
	return nil
}

type fakeSession struct {
	events       chan remote.Event
	hasToplevel  bool
	hasClipboard bool

	pointers   []*fakePointer
	clipboards []*fakeClipboard
	released   []string
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		events:       make(chan remote.Event, 16),
		hasToplevel:  true,
		hasClipboard: true,
	}
}

func (s *fakeSession) Events() <-chan remote.Event { return s.events }
func (s *fakeSession) HasToplevelManager() bool    { return s.hasToplevel }
func (s *fakeSession) HasClipboardManager() bool   { return s.hasClipboard }

func (s *fakeSession) CreatePointer(seatGlobal, outputGlobal uint32) (remote.Pointer, error) {
	p := &fakePointer{seat: seatGlobal, output: outputGlobal}
	s.pointers = append(s.pointers, p)
	return p, nil
}

func (s *fakeSession) CreateClipboard(seatGlobal uint32) (remote.Clipboard, error) {
	c := &fakeClipboard{}
	s.clipboards = append(s.clipboards, c)
	return c, nil
}

func (s *fakeSession) ReleaseOutput(global uint32) {
	s.released = append(s.released, fmt.Sprintf("output %d", global))
}

func (s *fakeSession) ReleaseSeat(global uint32) {
	s.released = append(s.released, fmt.Sprintf("seat %d", global))
}

func (s *fakeSession) ReleaseToplevel(id uint32) {
	s.released = append(s.released, fmt.Sprintf("toplevel %d", id))
}

func (s *fakeSession) Close() {}

type fakeWM struct {
	outputs []wm.Output
	events  chan wm.Event
}

func (f *fakeWM) Outputs() ([]wm.Output, error) { return f.outputs, nil }
func (f *fakeWM) Events() <-chan wm.Event       { return f.events }

func testConfig() *config.Config {
	return &config.Config{
		Remote: config.RemoteConfig{
			Display: "wayland-9",
			Output:  "HDMI-A-1",
			Seat:    "seat0",
		},
	}
}

func newTestBridge(session *fakeSession, bus *fakeBus, wmClient WindowManager) *Bridge {
	var w WindowManager
	if wmClient != nil {
		w = wmClient
	}
	return New(bus, session, w, testConfig())
}

func feedRemote(t *testing.T, b *Bridge, events ...remote.Event) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, b.handleRemote(ev))
	}
}

func feedHost(t *testing.T, b *Bridge, events ...host.Event) {
	t.Helper()
	for _, ev := range events {
		_, err := b.handleHost(ev)
		require.NoError(t, err)
	}
}

// matchAll feeds the discovery sequence that matches both names and
// enables forwarding.
func matchAll(t *testing.T, b *Bridge) {
	t.Helper()
	feedRemote(t, b,
		remote.OutputAdded{Global: 10},
		remote.OutputNamed{Global: 10, Name: "HDMI-A-1"},
		remote.SeatAdded{Global: 20},
		remote.SeatNamed{Global: 20, Name: "seat0"},
	)
	feedHost(t, b, host.PropertyChange{Name: host.PropInputForwarding, Data: true})
}

func setMetrics(t *testing.T, b *Bridge, w, h, ml, mr, mt, mb, vw, vh float64) {
	t.Helper()
	feedHost(t, b,
		host.PropertyChange{Name: host.PropOSDDimensions, Data: map[string]any{
			"w": w, "h": h, "ml": ml, "mr": mr, "mt": mt, "mb": mb,
		}},
		host.PropertyChange{Name: host.PropVideoParams, Data: map[string]any{
			"w": vw, "h": vh,
		}},
	)
}
