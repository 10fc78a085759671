// Package remote exposes the remote display-server session to the
// bridge: discovery notifications arrive as tagged event values on a
// single channel, and the bridge creates the virtual pointer and
// clipboard devices through the Session interface. The wire-level
// implementation lives in session.go; tests drive the bridge with
// fakes of these interfaces.
package remote

import (
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
)

// TextMimes are the recognized plain-text MIME identifiers, in
// negotiation priority order. Well-behaved applications offer the
// first one.
var TextMimes = []string{
	"text/plain;charset=utf-8",
	"text/plain",
	"TEXT",
	"STRING",
	"UTF8_STRING",
}

// SelfTagPayload is the body served for the self-tag MIME.
const SelfTagPayload = "waybridge"

var (
	selfTagOnce sync.Once
	selfTag     string
)

// SelfTagMime returns the process-unique MIME identifier advertised
// on every selection we publish. Setting the remote selection echoes
// an offer for it back to us; recognizing this tag is how the bridge
// avoids reading its own selections back into the host.
func SelfTagMime() string {
	selfTagOnce.Do(func() {
		selfTag = fmt.Sprintf("x-waybridge-%08x", rand.Uint32())
	})
	return selfTag
}

// Event is implemented by all remote session notifications.
type Event interface{ remoteEvent() }

// OutputAdded reports a newly advertised output global.
type OutputAdded struct{ Global uint32 }

// OutputNamed reports the output's name, which arrives after discovery.
type OutputNamed struct {
	Global uint32
	Name   string
}

// OutputRemoved reports that the output global disappeared. The
// handler must destroy dependent devices, then call ReleaseOutput.
type OutputRemoved struct{ Global uint32 }

// SeatAdded reports a newly advertised seat global.
type SeatAdded struct{ Global uint32 }

// SeatNamed reports the seat's name.
type SeatNamed struct {
	Global uint32
	Name   string
}

// SeatRemoved reports that the seat global disappeared.
type SeatRemoved struct{ Global uint32 }

// ToplevelOpened reports a new application window.
type ToplevelOpened struct{ ID uint32 }

// ToplevelTitle reports a window title change.
type ToplevelTitle struct {
	ID    uint32
	Title string
}

// ToplevelAppID reports a window app identifier change.
type ToplevelAppID struct {
	ID    uint32
	AppID string
}

// ToplevelOutputEnter reports the window entering an output.
type ToplevelOutputEnter struct{ ID, OutputGlobal uint32 }

// ToplevelOutputLeave reports the window leaving an output.
type ToplevelOutputLeave struct{ ID, OutputGlobal uint32 }

// ToplevelFullscreen reports the window's fullscreen state.
type ToplevelFullscreen struct {
	ID         uint32
	Fullscreen bool
}

// ToplevelDone is the commit point: all preceding window properties
// take effect atomically here.
type ToplevelDone struct{ ID uint32 }

// ToplevelClosed reports the window went away. The handler must call
// ReleaseToplevel afterwards.
type ToplevelClosed struct{ ID uint32 }

// OfferAnnounced introduces a selection offer; its MIME types follow
// as OfferMime events before the offer is committed.
type OfferAnnounced struct{ Offer Offer }

// OfferMime advertises one MIME type for a pending offer.
type OfferMime struct {
	Offer Offer
	Mime  string
}

// SelectionCommitted commits a pending offer as the selection of the
// given kind. A nil Offer means the selection was cleared.
type SelectionCommitted struct {
	Offer   Offer
	Primary bool
}

// SourceCancelled reports that a selection source we installed was
// replaced by another client and must be dropped.
type SourceCancelled struct{ Source Source }

// ClipboardFinished reports that the compositor is done with our
// clipboard device.
type ClipboardFinished struct{}

func (OutputAdded) remoteEvent()         {}
func (OutputNamed) remoteEvent()         {}
func (OutputRemoved) remoteEvent()       {}
func (SeatAdded) remoteEvent()           {}
func (SeatNamed) remoteEvent()           {}
func (SeatRemoved) remoteEvent()         {}
func (ToplevelOpened) remoteEvent()      {}
func (ToplevelTitle) remoteEvent()       {}
func (ToplevelAppID) remoteEvent()       {}
func (ToplevelOutputEnter) remoteEvent() {}
func (ToplevelOutputLeave) remoteEvent() {}
func (ToplevelFullscreen) remoteEvent()  {}
func (ToplevelDone) remoteEvent()        {}
func (ToplevelClosed) remoteEvent()      {}
func (OfferAnnounced) remoteEvent()      {}
func (OfferMime) remoteEvent()           {}
func (SelectionCommitted) remoteEvent()  {}
func (SourceCancelled) remoteEvent()     {}
func (ClipboardFinished) remoteEvent()   {}

// Pointer is a virtual pointer device bound to one (seat, output)
// pair. The binding cannot change; rebinding means destroy and
// create.
type Pointer interface {
	MotionAbsolute(timeMs, x, y, xExtent, yExtent uint32) error
	Frame() error
	Destroy() error
}

// Source is a selection source we installed on the remote session.
type Source interface {
	Destroy() error
}

// Offer is a selection offered by another remote client.
type Offer interface {
	// Receive starts a transfer of the payload in the given MIME type.
	// Reading the returned stream blocks until the sender finishes.
	Receive(mime string) (io.ReadCloser, error)
	Destroy() error
}

// Clipboard is the per-seat clipboard device.
type Clipboard interface {
	// NewSource creates a source serving text under the given MIME
	// list. It is not active until passed to SetSelection.
	NewSource(text string, mimes []string) (Source, error)
	// SetSelection installs src (nil clears) for the regular or
	// primary selection.
	SetSelection(src Source, primary bool) error
	Destroy() error
}

// Session is the connection to the remote display server.
type Session interface {
	// Events yields discovery and clipboard notifications. The channel
	// closes on a connection error or hangup, which is fatal.
	Events() <-chan Event

	// Optional capabilities, probed once at connect time.
	HasToplevelManager() bool
	HasClipboardManager() bool

	CreatePointer(seatGlobal, outputGlobal uint32) (Pointer, error)
	CreateClipboard(seatGlobal uint32) (Clipboard, error)

	// Release* drop the protocol object for a removed global. Callers
	// destroy dependent devices first.
	ReleaseOutput(global uint32)
	ReleaseSeat(global uint32)
	ReleaseToplevel(id uint32)

	Close()
}
