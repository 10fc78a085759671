package protocols

import (
	"github.com/bnema/wlturbo/wl"
)

// VirtualPointerManager manages virtual pointer objects
type VirtualPointerManager struct {
	wl.BaseProxy
}

// NewVirtualPointerManager creates a new virtual pointer manager
func NewVirtualPointerManager(ctx *wl.Context) *VirtualPointerManager {
	manager := &VirtualPointerManager{}
	manager.SetContext(ctx)
	return manager
}

// CreateVirtualPointerWithOutput creates a virtual pointer pinned to a
// (seat, output) pair. The binding is immutable for the lifetime of
// the pointer object.
func (m *VirtualPointerManager) CreateVirtualPointerWithOutput(seat *Seat, output *Output) (*VirtualPointer, error) {
	pointerID := m.Context().AllocateID()

	pointer := &VirtualPointer{}
	pointer.SetContext(m.Context())
	pointer.SetID(pointerID)
	m.Context().Register(pointer)

	// Opcode 2: create_virtual_pointer_with_output (since version 2)
	const opcode = 2

	err := m.Context().SendRequest(m, opcode, seat, output, pointer)
	if err != nil {
		m.Context().Unregister(pointer)
		return nil, err
	}

	return pointer, nil
}

// Destroy destroys the virtual pointer manager
func (m *VirtualPointerManager) Destroy() error {
	// Opcode 1: destroy
	const opcode = 1

	err := m.Context().SendRequest(m, opcode)
	m.Context().Unregister(m)
	return err
}

// Dispatch handles incoming events (virtual pointer manager has no events)
func (m *VirtualPointerManager) Dispatch(_ *wl.Event) {
	// Virtual pointer manager has no events
}

// VirtualPointer represents a virtual pointer device
type VirtualPointer struct {
	wl.BaseProxy
}

// MotionAbsolute sends an absolute pointer motion event
func (p *VirtualPointer) MotionAbsolute(time, x, y, xExtent, yExtent uint32) error {
	// Opcode 1: motion_absolute
	const opcode = 1
	return p.Context().SendRequest(p, opcode, time, x, y, xExtent, yExtent)
}

// Frame indicates the end of a pointer event sequence
func (p *VirtualPointer) Frame() error {
	// Opcode 4: frame
	const opcode = 4
	return p.Context().SendRequest(p, opcode)
}

// Destroy destroys the virtual pointer
func (p *VirtualPointer) Destroy() error {
	// Opcode 8: destroy
	const opcode = 8
	err := p.Context().SendRequest(p, opcode)
	p.Context().Unregister(p)
	return err
}

// Dispatch handles incoming events (virtual pointer has no events)
func (p *VirtualPointer) Dispatch(_ *wl.Event) {
	// Virtual pointer has no events
}
