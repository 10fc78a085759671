package protocols

import (
	"github.com/bnema/wlturbo/wl"
)

// DataControlManager creates clipboard devices and selection sources
type DataControlManager struct {
	wl.BaseProxy
}

// NewDataControlManager creates a new data control manager
func NewDataControlManager(ctx *wl.Context) *DataControlManager {
	manager := &DataControlManager{}
	manager.SetContext(ctx)
	return manager
}

// CreateDataSource creates a new selection source
func (m *DataControlManager) CreateDataSource() (*DataControlSource, error) {
	sourceID := m.Context().AllocateID()

	source := &DataControlSource{}
	source.SetContext(m.Context())
	source.SetID(sourceID)
	m.Context().Register(source)

	// Opcode 0: create_data_source
	const opcode = 0

	err := m.Context().SendRequest(m, opcode, source)
	if err != nil {
		m.Context().Unregister(source)
		return nil, err
	}

	return source, nil
}

// GetDataDevice creates the clipboard device for a seat
func (m *DataControlManager) GetDataDevice(seat *Seat) (*DataControlDevice, error) {
	deviceID := m.Context().AllocateID()

	device := &DataControlDevice{}
	device.SetContext(m.Context())
	device.SetID(deviceID)
	m.Context().Register(device)

	// Opcode 1: get_data_device
	const opcode = 1

	err := m.Context().SendRequest(m, opcode, device, seat)
	if err != nil {
		m.Context().Unregister(device)
		return nil, err
	}

	return device, nil
}

// Destroy destroys the data control manager
func (m *DataControlManager) Destroy() error {
	// Opcode 2: destroy
	const opcode = 2
	err := m.Context().SendRequest(m, opcode)
	m.Context().Unregister(m)
	return err
}

// Dispatch handles incoming events (the manager has no events)
func (m *DataControlManager) Dispatch(_ *wl.Event) {}

// DataControlDevice is the per-seat clipboard device. Offers are
// introduced by data_offer, populated by per-MIME offer events on the
// offer object, then committed by selection / primary_selection.
type DataControlDevice struct {
	wl.BaseProxy
	offerHandler            func(*DataControlOffer)
	selectionHandler        func(*DataControlOffer)
	primarySelectionHandler func(*DataControlOffer)
	finishedHandler         func()

	// offers introduced but not yet committed, by object id
	pendingOffers map[uint32]*DataControlOffer
}

// SetOfferHandler sets the handler for new offer announcements
func (d *DataControlDevice) SetOfferHandler(handler func(*DataControlOffer)) {
	d.offerHandler = handler
}

// SetSelectionHandler sets the handler for regular selection commits
func (d *DataControlDevice) SetSelectionHandler(handler func(*DataControlOffer)) {
	d.selectionHandler = handler
}

// SetPrimarySelectionHandler sets the handler for primary selection commits
func (d *DataControlDevice) SetPrimarySelectionHandler(handler func(*DataControlOffer)) {
	d.primarySelectionHandler = handler
}

// SetFinishedHandler sets the handler for the finished event
func (d *DataControlDevice) SetFinishedHandler(handler func()) {
	d.finishedHandler = handler
}

// SetSelection installs a source as the regular selection. A nil
// source clears the selection.
func (d *DataControlDevice) SetSelection(source *DataControlSource) error {
	// Opcode 0: set_selection
	const opcode = 0
	if source == nil {
		return d.Context().SendRequest(d, opcode, uint32(0))
	}
	return d.Context().SendRequest(d, opcode, source)
}

// SetPrimarySelection installs a source as the primary selection
func (d *DataControlDevice) SetPrimarySelection(source *DataControlSource) error {
	// Opcode 2: set_primary_selection
	const opcode = 2
	if source == nil {
		return d.Context().SendRequest(d, opcode, uint32(0))
	}
	return d.Context().SendRequest(d, opcode, source)
}

// Destroy destroys the clipboard device
func (d *DataControlDevice) Destroy() error {
	// Opcode 1: destroy
	const opcode = 1
	err := d.Context().SendRequest(d, opcode)
	d.Context().Unregister(d)
	return err
}

// Dispatch handles incoming events
func (d *DataControlDevice) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // data_offer: server-allocated new_id
		offerID := event.Uint32()
		offer := &DataControlOffer{}
		offer.SetContext(d.Context())
		offer.SetID(offerID)
		d.Context().Register(offer)
		if d.pendingOffers == nil {
			d.pendingOffers = make(map[uint32]*DataControlOffer)
		}
		d.pendingOffers[offerID] = offer
		if d.offerHandler != nil {
			d.offerHandler(offer)
		}
	case 1: // selection
		offer := d.takeOffer(event.Uint32())
		if d.selectionHandler != nil {
			d.selectionHandler(offer)
		}
	case 2: // finished
		if d.finishedHandler != nil {
			d.finishedHandler()
		}
	case 3: // primary_selection
		offer := d.takeOffer(event.Uint32())
		if d.primarySelectionHandler != nil {
			d.primarySelectionHandler(offer)
		}
	}
}

// takeOffer resolves a committed offer id; zero means "no selection".
func (d *DataControlDevice) takeOffer(id uint32) *DataControlOffer {
	if id == 0 {
		return nil
	}
	return d.pendingOffers[id]
}

// DataControlOffer is a selection offered by another client
type DataControlOffer struct {
	wl.BaseProxy
	mimeHandler func(string)
}

// SetMimeHandler sets the handler for advertised MIME types
func (o *DataControlOffer) SetMimeHandler(handler func(string)) {
	o.mimeHandler = handler
}

// Receive asks for the offer's payload in the given MIME type,
// written to the supplied file descriptor. The caller keeps ownership
// of the descriptor and closes it after the request is sent.
func (o *DataControlOffer) Receive(mimeType string, fd int) error {
	// Opcode 0: receive
	const opcode = 0
	return o.Context().SendRequestWithFDs(o, opcode, []int{fd}, mimeType)
}

// Destroy destroys the offer
func (o *DataControlOffer) Destroy() error {
	// Opcode 1: destroy
	const opcode = 1
	err := o.Context().SendRequest(o, opcode)
	o.Context().Unregister(o)
	return err
}

// Dispatch handles incoming events
func (o *DataControlOffer) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // offer
		mime := event.String()
		if o.mimeHandler != nil {
			o.mimeHandler(mime)
		}
	}
}

// DataControlSource is a selection offered by us
type DataControlSource struct {
	wl.BaseProxy
	sendHandler      func(mimeType string, fd int)
	cancelledHandler func()
}

// SetSendHandler sets the handler for payload requests
func (s *DataControlSource) SetSendHandler(handler func(mimeType string, fd int)) {
	s.sendHandler = handler
}

// SetCancelledHandler sets the handler for the cancelled event
func (s *DataControlSource) SetCancelledHandler(handler func()) {
	s.cancelledHandler = handler
}

// Offer advertises a MIME type for this source
func (s *DataControlSource) Offer(mimeType string) error {
	// Opcode 0: offer
	const opcode = 0
	return s.Context().SendRequest(s, opcode, mimeType)
}

// Destroy destroys the source
func (s *DataControlSource) Destroy() error {
	// Opcode 1: destroy
	const opcode = 1
	err := s.Context().SendRequest(s, opcode)
	s.Context().Unregister(s)
	return err
}

// Dispatch handles incoming events
func (s *DataControlSource) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // send
		mime := event.String()
		fd := event.Fd()
		if s.sendHandler != nil {
			s.sendHandler(mime, int(fd))
		}
	case 1: // cancelled
		if s.cancelledHandler != nil {
			s.cancelledHandler()
		}
	}
}
