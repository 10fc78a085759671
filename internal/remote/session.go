package remote

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/bnema/waybridge/internal/logger"
	"github.com/bnema/waybridge/internal/protocols"
	"github.com/bnema/wlturbo/wl"
)

// WireSession implements Session over a live Wayland connection. Wire
// events are decoded on the dispatch goroutine and forwarded as
// tagged values; all session state is guarded by one mutex because
// Release* calls arrive from the bridge loop.
type WireSession struct {
	display  *wl.Display
	ctx      *wl.Context
	registry *wl.Registry
	events   chan Event

	pointerManager   *protocols.VirtualPointerManager
	toplevelManager  *protocols.ToplevelManager
	clipboardManager *protocols.DataControlManager

	mu            sync.Mutex
	outputs       map[uint32]*protocols.Output // registry global -> proxy
	seats         map[uint32]*protocols.Seat
	outputGlobals map[uint32]uint32 // proxy object id -> registry global
	toplevels     map[uint32]*protocols.ToplevelHandle
}

// Dial connects to the remote display and performs the initial
// registry roundtrip. The virtual pointer manager is mandatory;
// toplevel management and data control degrade gracefully when
// absent.
func Dial(display string) (*WireSession, error) {
	d, err := wl.Connect(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the remote compositor: %w", err)
	}

	s := &WireSession{
		display:       d,
		ctx:           d.Context(),
		events:        make(chan Event, 256),
		outputs:       make(map[uint32]*protocols.Output),
		seats:         make(map[uint32]*protocols.Seat),
		outputGlobals: make(map[uint32]uint32),
		toplevels:     make(map[uint32]*protocols.ToplevelHandle),
	}

	registry := d.GetRegistry()
	s.registry = registry
	registry.AddGlobalHandler(s)
	registry.AddGlobalRemoveHandler(s)

	if err := d.Roundtrip(); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to enumerate remote globals: %w", err)
	}

	if s.pointerManager == nil {
		d.Close()
		return nil, fmt.Errorf("remote compositor lacks %s", protocols.VirtualPointerManagerInterface)
	}
	if s.toplevelManager == nil {
		logger.Warn("remote compositor lacks toplevel management, the display title will stay generic")
	}
	if s.clipboardManager == nil {
		logger.Warn("remote compositor lacks data control, clipboard synchronization is disabled")
	}

	go s.dispatchLoop()
	return s, nil
}

func (s *WireSession) dispatchLoop() {
	defer close(s.events)
	for {
		if err := s.display.Dispatch(); err != nil {
			logger.Errorf("remote display connection lost: %v", err)
			return
		}
	}
}

// HandleRegistryGlobal implements wl.RegistryGlobalHandler
func (s *WireSession) HandleRegistryGlobal(event wl.RegistryGlobalEvent) {
	switch event.Interface {
	case protocols.VirtualPointerManagerInterface:
		manager := protocols.NewVirtualPointerManager(s.ctx)
		if err := s.registry.Bind(event.Name, event.Interface, protocols.VirtualPointerManagerBindVersion, manager); err != nil {
			logger.Errorf("failed to bind virtual pointer manager: %v", err)
			return
		}
		s.pointerManager = manager

	case protocols.DataControlManagerInterface:
		manager := protocols.NewDataControlManager(s.ctx)
		if err := s.registry.Bind(event.Name, event.Interface, protocols.DataControlManagerBindVersion, manager); err != nil {
			logger.Errorf("failed to bind data control manager: %v", err)
			return
		}
		s.clipboardManager = manager

	case protocols.ToplevelManagerInterface:
		manager := protocols.NewToplevelManager(s.ctx)
		manager.SetToplevelHandler(s.handleToplevel)
		manager.SetFinishedHandler(func() {
			logger.Warn("compositor is finished with our toplevel manager")
		})
		if err := s.registry.Bind(event.Name, event.Interface, protocols.ToplevelManagerBindVersion, manager); err != nil {
			logger.Errorf("failed to bind toplevel manager: %v", err)
			return
		}
		s.toplevelManager = manager

	case protocols.OutputInterface:
		global := event.Name
		output := protocols.NewOutput(s.ctx)
		output.SetNameHandler(func(name string) {
			s.events <- OutputNamed{Global: global, Name: name}
		})
		if err := s.registry.Bind(global, event.Interface, protocols.OutputBindVersion, output); err != nil {
			logger.Errorf("failed to bind output %d: %v", global, err)
			return
		}
		s.mu.Lock()
		s.outputs[global] = output
		s.outputGlobals[output.ID()] = global
		s.mu.Unlock()
		s.events <- OutputAdded{Global: global}

	case protocols.SeatInterface:
		global := event.Name
		seat := protocols.NewSeat(s.ctx)
		seat.SetNameHandler(func(name string) {
			s.events <- SeatNamed{Global: global, Name: name}
		})
		if err := s.registry.Bind(global, event.Interface, protocols.SeatBindVersion, seat); err != nil {
			logger.Errorf("failed to bind seat %d: %v", global, err)
			return
		}
		s.mu.Lock()
		s.seats[global] = seat
		s.mu.Unlock()
		s.events <- SeatAdded{Global: global}
	}
}

// HandleRegistryGlobalRemove implements wl.RegistryGlobalRemoveHandler
func (s *WireSession) HandleRegistryGlobalRemove(event wl.RegistryGlobalRemoveEvent) {
	s.mu.Lock()
	_, isOutput := s.outputs[event.Name]
	_, isSeat := s.seats[event.Name]
	s.mu.Unlock()

	if isOutput {
		s.events <- OutputRemoved{Global: event.Name}
	}
	if isSeat {
		s.events <- SeatRemoved{Global: event.Name}
	}
}

func (s *WireSession) handleToplevel(handle *protocols.ToplevelHandle) {
	id := handle.ID()
	s.mu.Lock()
	s.toplevels[id] = handle
	s.mu.Unlock()

	handle.SetTitleHandler(func(title string) {
		s.events <- ToplevelTitle{ID: id, Title: title}
	})
	handle.SetAppIDHandler(func(appID string) {
		s.events <- ToplevelAppID{ID: id, AppID: appID}
	})
	handle.SetOutputEnterHandler(func(outputID uint32) {
		if global, ok := s.outputGlobal(outputID); ok {
			s.events <- ToplevelOutputEnter{ID: id, OutputGlobal: global}
		}
	})
	handle.SetOutputLeaveHandler(func(outputID uint32) {
		if global, ok := s.outputGlobal(outputID); ok {
			s.events <- ToplevelOutputLeave{ID: id, OutputGlobal: global}
		}
	})
	handle.SetStateHandler(func(fullscreen bool) {
		s.events <- ToplevelFullscreen{ID: id, Fullscreen: fullscreen}
	})
	handle.SetDoneHandler(func() {
		s.events <- ToplevelDone{ID: id}
	})
	handle.SetClosedHandler(func() {
		s.events <- ToplevelClosed{ID: id}
	})

	s.events <- ToplevelOpened{ID: id}
}

func (s *WireSession) outputGlobal(proxyID uint32) (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	global, ok := s.outputGlobals[proxyID]
	return global, ok
}

// Events implements Session.
func (s *WireSession) Events() <-chan Event {
	return s.events
}

// HasToplevelManager implements Session.
func (s *WireSession) HasToplevelManager() bool {
	return s.toplevelManager != nil
}

// HasClipboardManager implements Session.
func (s *WireSession) HasClipboardManager() bool {
	return s.clipboardManager != nil
}

// CreatePointer implements Session.
func (s *WireSession) CreatePointer(seatGlobal, outputGlobal uint32) (Pointer, error) {
	s.mu.Lock()
	seat := s.seats[seatGlobal]
	output := s.outputs[outputGlobal]
	s.mu.Unlock()
	if seat == nil || output == nil {
		return nil, fmt.Errorf("seat %d or output %d is gone", seatGlobal, outputGlobal)
	}
	return s.pointerManager.CreateVirtualPointerWithOutput(seat, output)
}

// CreateClipboard implements Session.
func (s *WireSession) CreateClipboard(seatGlobal uint32) (Clipboard, error) {
	if s.clipboardManager == nil {
		return nil, fmt.Errorf("data control is not available")
	}
	s.mu.Lock()
	seat := s.seats[seatGlobal]
	s.mu.Unlock()
	if seat == nil {
		return nil, fmt.Errorf("seat %d is gone", seatGlobal)
	}

	device, err := s.clipboardManager.GetDataDevice(seat)
	if err != nil {
		return nil, err
	}

	clip := &wireClipboard{session: s, device: device}
	device.SetOfferHandler(func(offer *protocols.DataControlOffer) {
		wrapped := &wireOffer{offer: offer}
		offer.SetMimeHandler(func(mime string) {
			s.events <- OfferMime{Offer: wrapped, Mime: mime}
		})
		s.events <- OfferAnnounced{Offer: wrapped}
		// Remember the wrapper so commit events carry the same value.
		clip.trackOffer(offer, wrapped)
	})
	device.SetSelectionHandler(func(offer *protocols.DataControlOffer) {
		s.events <- SelectionCommitted{Offer: clip.lookupOffer(offer), Primary: false}
	})
	device.SetPrimarySelectionHandler(func(offer *protocols.DataControlOffer) {
		s.events <- SelectionCommitted{Offer: clip.lookupOffer(offer), Primary: true}
	})
	device.SetFinishedHandler(func() {
		s.events <- ClipboardFinished{}
	})

	return clip, nil
}

// ReleaseOutput implements Session.
func (s *WireSession) ReleaseOutput(global uint32) {
	s.mu.Lock()
	output := s.outputs[global]
	delete(s.outputs, global)
	if output != nil {
		delete(s.outputGlobals, output.ID())
	}
	s.mu.Unlock()
	if output != nil {
		if err := output.Release(); err != nil {
			logger.Warnf("failed to release output %d: %v", global, err)
		}
	}
}

// ReleaseSeat implements Session.
func (s *WireSession) ReleaseSeat(global uint32) {
	s.mu.Lock()
	seat := s.seats[global]
	delete(s.seats, global)
	s.mu.Unlock()
	if seat != nil {
		if err := seat.Release(); err != nil {
			logger.Warnf("failed to release seat %d: %v", global, err)
		}
	}
}

// ReleaseToplevel implements Session.
func (s *WireSession) ReleaseToplevel(id uint32) {
	s.mu.Lock()
	handle := s.toplevels[id]
	delete(s.toplevels, id)
	s.mu.Unlock()
	if handle != nil {
		if err := handle.Destroy(); err != nil {
			logger.Warnf("failed to destroy toplevel %d: %v", id, err)
		}
	}
}

// Close implements Session. Devices are already gone: the bridge
// tears them down before closing the session.
func (s *WireSession) Close() {
	if s.toplevelManager != nil {
		if err := s.toplevelManager.Stop(); err != nil {
			logger.Warnf("failed to stop toplevel manager: %v", err)
		}
	}
	if s.clipboardManager != nil {
		if err := s.clipboardManager.Destroy(); err != nil {
			logger.Warnf("failed to destroy data control manager: %v", err)
		}
	}
	if s.pointerManager != nil {
		if err := s.pointerManager.Destroy(); err != nil {
			logger.Warnf("failed to destroy virtual pointer manager: %v", err)
		}
	}
	s.display.Close()
}

// wireClipboard implements Clipboard over a data control device.
type wireClipboard struct {
	session *WireSession
	device  *protocols.DataControlDevice

	mu     sync.Mutex
	offers map[*protocols.DataControlOffer]*wireOffer
}

func (c *wireClipboard) trackOffer(raw *protocols.DataControlOffer, wrapped *wireOffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.offers == nil {
		c.offers = make(map[*protocols.DataControlOffer]*wireOffer)
	}
	c.offers[raw] = wrapped
}

func (c *wireClipboard) lookupOffer(raw *protocols.DataControlOffer) Offer {
	if raw == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	wrapped := c.offers[raw]
	delete(c.offers, raw)
	if wrapped == nil {
		return nil
	}
	return wrapped
}

// NewSource implements Clipboard.
func (c *wireClipboard) NewSource(text string, mimes []string) (Source, error) {
	raw, err := c.session.clipboardManager.CreateDataSource()
	if err != nil {
		return nil, err
	}

	src := &wireSource{source: raw, text: text}
	raw.SetSendHandler(src.send)
	raw.SetCancelledHandler(func() {
		c.session.events <- SourceCancelled{Source: src}
	})

	for _, mime := range mimes {
		if err := raw.Offer(mime); err != nil {
			raw.Destroy()
			return nil, err
		}
	}
	return src, nil
}

// SetSelection implements Clipboard.
func (c *wireClipboard) SetSelection(src Source, primary bool) error {
	var raw *protocols.DataControlSource
	if src != nil {
		ws, ok := src.(*wireSource)
		if !ok {
			return fmt.Errorf("source does not belong to this clipboard")
		}
		raw = ws.source
	}
	if primary {
		return c.device.SetPrimarySelection(raw)
	}
	return c.device.SetSelection(raw)
}

// Destroy implements Clipboard.
func (c *wireClipboard) Destroy() error {
	return c.device.Destroy()
}

// wireSource serves a published selection. Payload requests arrive on
// the dispatch goroutine and are answered inline: selections are
// small text.
type wireSource struct {
	source *protocols.DataControlSource
	text   string
}

func (s *wireSource) send(mime string, fd int) {
	f := os.NewFile(uintptr(fd), "selection-sink")
	if f == nil {
		return
	}
	defer f.Close()

	var payload string
	if mime == SelfTagMime() {
		payload = SelfTagPayload
	} else {
		for _, candidate := range TextMimes {
			if mime == candidate {
				payload = s.text
				break
			}
		}
	}
	if payload == "" && mime != SelfTagMime() {
		return
	}
	if _, err := f.WriteString(payload); err != nil {
		logger.Warnf("failed to write selection payload: %v", err)
	}
}

// Destroy implements Source.
func (s *wireSource) Destroy() error {
	return s.source.Destroy()
}

// wireOffer implements Offer over a data control offer.
type wireOffer struct {
	offer *protocols.DataControlOffer
}

// Receive implements Offer. The write end is handed to the compositor
// and closed locally; the read side blocks until the sender finishes.
func (o *wireOffer) Receive(mime string) (io.ReadCloser, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	if err := o.offer.Receive(mime, int(w.Fd())); err != nil {
		r.Close()
		w.Close()
		return nil, err
	}
	w.Close()
	return r, nil
}

// Destroy implements Offer.
func (o *wireOffer) Destroy() error {
	return o.offer.Destroy()
}
