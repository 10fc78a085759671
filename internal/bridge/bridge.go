// Package bridge runs the event multiplexer that ties the host player,
// the remote display session, and the optional window manager
// together. All state lives on the loop goroutine: the three sources
// feed decoded events over channels, and every handler runs here, so
// nothing in this package needs a lock.
package bridge

import (
	"fmt"
	"sync"
	"time"

	"github.com/bnema/waybridge/internal/config"
	"github.com/bnema/waybridge/internal/host"
	"github.com/bnema/waybridge/internal/logger"
	"github.com/bnema/waybridge/internal/remote"
	"github.com/bnema/waybridge/internal/tracker"
	"github.com/bnema/waybridge/internal/transform"
	"github.com/bnema/waybridge/internal/wm"
)

// WindowManager is the slice of the wm client the bridge uses.
type WindowManager interface {
	Outputs() ([]wm.Output, error)
	Events() <-chan wm.Event
}

// selection slots, indexed by the primary flag
const (
	slotRegular = 0
	slotPrimary = 1
)

type offerState struct {
	// index into remote.TextMimes of the best recognized type, -1
	// until one arrives
	mimeIdx int
	// own marks offers advertising our self tag; they are never read
	// back into the host
	own bool
}

// Bridge is the single-owner state of one bridging session.
type Bridge struct {
	bus     host.Bus
	session remote.Session
	wm      WindowManager

	displayName string
	outputName  string
	seatName    string

	track    *tracker.Tracker
	selfMime string
	start    time.Time

	forwarding bool
	grab       bool

	pointer     remote.Pointer
	boundSeat   uint32
	boundOutput uint32

	clipboard     remote.Clipboard
	clipboardSeat uint32
	sources       [2]remote.Source
	offers        map[remote.Offer]*offerState

	area     transform.Area
	hasArea  bool
	video    transform.Video
	hasVideo bool

	layoutX    int64
	layoutY    int64
	haveOrigin bool

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a bridge over the given connections. wmClient may be nil
// when no window manager socket is configured; cursor warp relay is
// then disabled.
func New(bus host.Bus, session remote.Session, wmClient WindowManager, cfg *config.Config) *Bridge {
	return &Bridge{
		bus:         bus,
		session:     session,
		wm:          wmClient,
		displayName: cfg.Remote.Display,
		outputName:  cfg.Remote.Output,
		seatName:    cfg.Remote.Seat,
		track:       tracker.New(cfg.Remote.Output, cfg.Remote.Seat, cfg.Bridge.RequireOutputVisibility),
		selfMime:    remote.SelfTagMime(),
		start:       time.Now(),
		// Forwarding is on until the host says otherwise; the control
		// property usually does not exist yet at startup. Grab starts
		// off.
		forwarding: true,
		offers:     make(map[remote.Offer]*offerState),
		stop:       make(chan struct{}),
	}
}

// Stop asks a running bridge to shut down in an orderly way. Safe to
// call from any goroutine, any number of times.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() { close(b.stop) })
}

// Run drives the bridge until the host player quits, the window
// manager exits, or a connection fails. A nil return is the orderly
// shutdown path.
func (b *Bridge) Run() error {
	defer b.teardown()

	if err := b.setGenericTitle(); err != nil {
		return fmt.Errorf("failed to set the initial title: %w", err)
	}

	for _, name := range []string{
		host.PropOSDDimensions,
		host.PropVideoParams,
		host.PropInputForwarding,
		host.PropForceGrabCursor,
	} {
		if err := b.bus.Observe(name); err != nil {
			return fmt.Errorf("failed to observe %s: %w", name, err)
		}
	}
	b.fetchInitialFlags()
	b.refreshLayoutOrigin()

	var wmEvents <-chan wm.Event
	if b.wm != nil {
		wmEvents = b.wm.Events()
	}

	for {
		select {
		case <-b.stop:
			return nil

		case ev, ok := <-b.bus.Events():
			if !ok {
				return fmt.Errorf("lost the host player connection")
			}
			done, err := b.handleHost(ev)
			if err != nil {
				return err
			}
			if done {
				logger.Info("host player is shutting down")
				return nil
			}

		case ev, ok := <-b.session.Events():
			if !ok {
				return fmt.Errorf("lost the remote session connection")
			}
			if err := b.handleRemote(ev); err != nil {
				return err
			}

		case ev, ok := <-wmEvents:
			if !ok {
				return fmt.Errorf("lost the window manager connection")
			}
			done, err := b.handleWM(ev)
			if err != nil {
				return err
			}
			if done {
				logger.Info("window manager is shutting down")
				return nil
			}
		}
	}
}

// fetchInitialFlags reads the control flags once at startup; the
// properties may not exist yet, which is not an error.
func (b *Bridge) fetchInitialFlags() {
	if data, err := b.bus.Get(host.PropInputForwarding); err == nil {
		if v, ok := data.(bool); ok {
			b.forwarding = v
		}
	}
	if data, err := b.bus.Get(host.PropForceGrabCursor); err == nil {
		if v, ok := data.(bool); ok {
			b.grab = v
		}
	}
}

func (b *Bridge) handleHost(ev host.Event) (bool, error) {
	switch e := ev.(type) {
	case host.Shutdown:
		return true, nil

	case host.PropertyChange:
		switch e.Name {
		case host.PropOSDDimensions:
			b.onOSDDimensions(e.Data)
		case host.PropVideoParams:
			b.onVideoParams(e.Data)
		case host.PropMousePos:
			b.onMousePos(e.Data)
		case host.PropInputForwarding:
			v, _ := e.Data.(bool)
			if v != b.forwarding {
				b.forwarding = v
				logger.Infof("input forwarding %s", onOff(v))
				b.reevaluatePointer()
				b.reevaluateClipboard()
			}
		case host.PropForceGrabCursor:
			v, _ := e.Data.(bool)
			if v != b.grab {
				b.grab = v
				logger.Infof("cursor grab %s", onOff(v))
				b.reevaluatePointer()
			}
		case host.PropClipboardText:
			if text, ok := e.Data.(string); ok {
				b.publishSelection(text, false)
			}
		case host.PropClipboardTextPrimary:
			if text, ok := e.Data.(string); ok {
				b.publishSelection(text, true)
			}
		}
	}
	return false, nil
}

func (b *Bridge) handleRemote(ev remote.Event) error {
	switch e := ev.(type) {
	case remote.OutputAdded:
		b.track.AddOutput(e.Global)

	case remote.OutputNamed:
		if b.track.NameOutput(e.Global, e.Name) {
			logger.Infof("matched remote output %q", e.Name)
			b.reevaluatePointer()
		}

	case remote.OutputRemoved:
		if b.track.RemoveOutput(e.Global) {
			logger.Warn("the matched remote output went away")
			b.destroyPointer()
		}
		b.session.ReleaseOutput(e.Global)

	case remote.SeatAdded:
		b.track.AddSeat(e.Global)

	case remote.SeatNamed:
		if b.track.NameSeat(e.Global, e.Name) {
			logger.Infof("matched remote seat %q", e.Name)
			b.reevaluatePointer()
			b.reevaluateClipboard()
		}

	case remote.SeatRemoved:
		if b.track.RemoveSeat(e.Global) {
			logger.Warn("the matched remote seat went away")
			b.destroyPointer()
			b.destroyClipboard()
		}
		b.session.ReleaseSeat(e.Global)

	case remote.ToplevelOpened:
		b.track.AddToplevel(e.ID)

	case remote.ToplevelTitle:
		b.track.SetToplevelTitle(e.ID, e.Title)

	case remote.ToplevelAppID:
		b.track.SetToplevelAppID(e.ID, e.AppID)

	case remote.ToplevelOutputEnter:
		b.track.ToplevelOutputEnter(e.ID, e.OutputGlobal)

	case remote.ToplevelOutputLeave:
		b.track.ToplevelOutputLeave(e.ID, e.OutputGlobal)

	case remote.ToplevelFullscreen:
		b.track.SetToplevelFullscreen(e.ID, e.Fullscreen)

	case remote.ToplevelDone:
		return b.onToplevelCommit(e.ID)

	case remote.ToplevelClosed:
		wasCurrent := b.track.CloseToplevel(e.ID)
		b.session.ReleaseToplevel(e.ID)
		if wasCurrent {
			return b.setGenericTitle()
		}

	case remote.OfferAnnounced:
		b.offers[e.Offer] = &offerState{mimeIdx: -1}

	case remote.OfferMime:
		b.onOfferMime(e.Offer, e.Mime)

	case remote.SelectionCommitted:
		return b.onSelectionCommitted(e.Offer, e.Primary)

	case remote.SourceCancelled:
		b.onSourceCancelled(e.Source)

	case remote.ClipboardFinished:
		logger.Warn("the compositor finished with our clipboard device")
		b.destroyClipboard()
	}
	return nil
}

func (b *Bridge) handleWM(ev wm.Event) (bool, error) {
	switch e := ev.(type) {
	case wm.Shutdown:
		return true, nil
	case wm.OutputChanged:
		b.refreshLayoutOrigin()
	case wm.CursorWarp:
		if err := b.onCursorWarp(e.X, e.Y); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (b *Bridge) onOSDDimensions(data any) {
	w, okW := host.IntField(data, "w")
	h, okH := host.IntField(data, "h")
	ml, okML := host.IntField(data, "ml")
	mr, okMR := host.IntField(data, "mr")
	mt, okMT := host.IntField(data, "mt")
	mb, okMB := host.IntField(data, "mb")
	if !okW || !okH || !okML || !okMR || !okMT || !okMB {
		b.hasArea = false
		return
	}
	b.area = transform.Area{
		MarginLeft:   ml,
		MarginRight:  mr,
		MarginTop:    mt,
		MarginBottom: mb,
		Width:        w,
		Height:       h,
	}
	b.hasArea = true
}

func (b *Bridge) onVideoParams(data any) {
	w, okW := host.IntField(data, "w")
	h, okH := host.IntField(data, "h")
	if !okW || !okH || w <= 0 || h <= 0 {
		b.hasVideo = false
		return
	}
	b.video = transform.Video{Width: w, Height: h}
	b.hasVideo = true
}

// teardown releases every remote resource before the connections are
// closed by the caller. Errors are logged only; we are on the way out.
func (b *Bridge) teardown() {
	b.destroyPointer()
	b.destroyClipboard()
	if err := b.bus.Set(host.PropMediaTitle, ""); err != nil {
		logger.Debugf("could not clear the title on shutdown: %v", err)
	}
}

func onOff(v bool) string {
	if v {
		return "enabled"
	}
	return "disabled"
}
