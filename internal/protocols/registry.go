// Package protocols contains hand-written bindings for the Wayland
// protocols the bridge speaks: core output/seat discovery, virtual
// pointer, data control, and foreign toplevel management. Each object
// embeds wl.BaseProxy, sends requests by opcode, and decodes events
// into typed handler callbacks.
package protocols

import (
	"github.com/bnema/wlturbo/wl"
)

// Protocol interface names
const (
	OutputInterface                = "wl_output"
	SeatInterface                  = "wl_seat"
	VirtualPointerManagerInterface = "zwlr_virtual_pointer_manager_v1"
	DataControlManagerInterface    = "ext_data_control_manager_v1"
	ToplevelManagerInterface       = "zwlr_foreign_toplevel_manager_v1"
)

// Bind versions requested for each global.
const (
	OutputBindVersion                = 4
	SeatBindVersion                  = 8
	VirtualPointerManagerBindVersion = 2
	DataControlManagerBindVersion    = 1
	ToplevelManagerBindVersion       = 3
)

// Output is a bound wl_output. Only the name event matters to the
// bridge; geometry and mode events are ignored.
type Output struct {
	wl.BaseProxy
	nameHandler func(string)
}

// NewOutput creates an output proxy for registry binding
func NewOutput(ctx *wl.Context) *Output {
	o := &Output{}
	o.SetContext(ctx)
	return o
}

// SetNameHandler sets the handler for the name event
func (o *Output) SetNameHandler(handler func(string)) {
	o.nameHandler = handler
}

// Release tells the compositor we are done with the output
func (o *Output) Release() error {
	// Opcode 0: release (since version 3)
	const opcode = 0
	err := o.Context().SendRequest(o, opcode)
	o.Context().Unregister(o)
	return err
}

// Dispatch handles incoming events
func (o *Output) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 4: // name
		name := event.String()
		if o.nameHandler != nil {
			o.nameHandler(name)
		}
	}
}

// Seat is a bound wl_seat. Only the name event matters.
type Seat struct {
	wl.BaseProxy
	nameHandler func(string)
}

// NewSeat creates a seat proxy for registry binding
func NewSeat(ctx *wl.Context) *Seat {
	s := &Seat{}
	s.SetContext(ctx)
	return s
}

// SetNameHandler sets the handler for the name event
func (s *Seat) SetNameHandler(handler func(string)) {
	s.nameHandler = handler
}

// Release tells the compositor we are done with the seat
func (s *Seat) Release() error {
	// Opcode 3: release (since version 5)
	const opcode = 3
	err := s.Context().SendRequest(s, opcode)
	s.Context().Unregister(s)
	return err
}

// Dispatch handles incoming events
func (s *Seat) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 1: // name
		name := event.String()
		if s.nameHandler != nil {
			s.nameHandler(name)
		}
	}
}
