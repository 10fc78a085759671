package protocols

import (
	"encoding/binary"

	"github.com/bnema/wlturbo/wl"
)

// toplevel state enum values from the protocol
const (
	toplevelStateMaximized  = 0
	toplevelStateMinimized  = 1
	toplevelStateActivated  = 2
	toplevelStateFullscreen = 3
)

// ToplevelManager announces application windows as they open
type ToplevelManager struct {
	wl.BaseProxy
	toplevelHandler func(*ToplevelHandle)
	finishedHandler func()
}

// NewToplevelManager creates a new foreign toplevel manager
func NewToplevelManager(ctx *wl.Context) *ToplevelManager {
	manager := &ToplevelManager{}
	manager.SetContext(ctx)
	return manager
}

// SetToplevelHandler sets the handler for new windows
func (m *ToplevelManager) SetToplevelHandler(handler func(*ToplevelHandle)) {
	m.toplevelHandler = handler
}

// SetFinishedHandler sets the handler for the finished event
func (m *ToplevelManager) SetFinishedHandler(handler func()) {
	m.finishedHandler = handler
}

// Stop asks the compositor to stop sending window events
func (m *ToplevelManager) Stop() error {
	// Opcode 0: stop
	const opcode = 0
	return m.Context().SendRequest(m, opcode)
}

// Dispatch handles incoming events
func (m *ToplevelManager) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // toplevel: server-allocated new_id
		handleID := event.Uint32()
		handle := &ToplevelHandle{}
		handle.SetContext(m.Context())
		handle.SetID(handleID)
		m.Context().Register(handle)
		if m.toplevelHandler != nil {
			m.toplevelHandler(handle)
		}
	case 1: // finished
		if m.finishedHandler != nil {
			m.finishedHandler()
		}
	}
}

// ToplevelHandle tracks one application window
type ToplevelHandle struct {
	wl.BaseProxy
	titleHandler       func(string)
	appIDHandler       func(string)
	outputEnterHandler func(outputID uint32)
	outputLeaveHandler func(outputID uint32)
	stateHandler       func(fullscreen bool)
	doneHandler        func()
	closedHandler      func()
}

// SetTitleHandler sets the handler for title changes
func (h *ToplevelHandle) SetTitleHandler(handler func(string)) {
	h.titleHandler = handler
}

// SetAppIDHandler sets the handler for app id changes
func (h *ToplevelHandle) SetAppIDHandler(handler func(string)) {
	h.appIDHandler = handler
}

// SetOutputEnterHandler sets the handler for output membership gain.
// The argument is the object id of the wl_output proxy.
func (h *ToplevelHandle) SetOutputEnterHandler(handler func(outputID uint32)) {
	h.outputEnterHandler = handler
}

// SetOutputLeaveHandler sets the handler for output membership loss
func (h *ToplevelHandle) SetOutputLeaveHandler(handler func(outputID uint32)) {
	h.outputLeaveHandler = handler
}

// SetStateHandler sets the handler for state changes, reduced to the
// fullscreen flag the bridge cares about
func (h *ToplevelHandle) SetStateHandler(handler func(fullscreen bool)) {
	h.stateHandler = handler
}

// SetDoneHandler sets the handler for the commit event
func (h *ToplevelHandle) SetDoneHandler(handler func()) {
	h.doneHandler = handler
}

// SetClosedHandler sets the handler for window closure
func (h *ToplevelHandle) SetClosedHandler(handler func()) {
	h.closedHandler = handler
}

// Destroy destroys the handle
func (h *ToplevelHandle) Destroy() error {
	// Opcode 7: destroy
	const opcode = 7
	err := h.Context().SendRequest(h, opcode)
	h.Context().Unregister(h)
	return err
}

// Dispatch handles incoming events
func (h *ToplevelHandle) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // title
		title := event.String()
		if h.titleHandler != nil {
			h.titleHandler(title)
		}
	case 1: // app_id
		appID := event.String()
		if h.appIDHandler != nil {
			h.appIDHandler(appID)
		}
	case 2: // output_enter
		outputID := event.Uint32()
		if h.outputEnterHandler != nil {
			h.outputEnterHandler(outputID)
		}
	case 3: // output_leave
		outputID := event.Uint32()
		if h.outputLeaveHandler != nil {
			h.outputLeaveHandler(outputID)
		}
	case 4: // state: wl_array of uint32 enum values
		fullscreen := false
		states := event.Array()
		for i := 0; i+4 <= len(states); i += 4 {
			if binary.LittleEndian.Uint32(states[i:i+4]) == toplevelStateFullscreen {
				fullscreen = true
				break
			}
		}
		if h.stateHandler != nil {
			h.stateHandler(fullscreen)
		}
	case 5: // done
		if h.doneHandler != nil {
			h.doneHandler()
		}
	case 6: // closed
		if h.closedHandler != nil {
			h.closedHandler()
		}
	}
}
