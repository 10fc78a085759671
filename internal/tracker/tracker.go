// Package tracker owns the bookkeeping for discovered remote outputs,
// seats, and toplevel windows. It resolves which output and seat carry
// the configured names and tracks which window, if any, currently
// drives the display title.
//
// The tracker never talks to the display server itself: callers feed
// it discovery notifications and read back match state. Dependent
// devices are created and destroyed by the bridge, which must tear
// them down before removing the entry they are bound to.
package tracker

// Output is a discovered remote output. The name arrives in a
// separate notification after discovery.
type Output struct {
	Global uint32
	Name   string
}

// Seat is a discovered remote seat.
type Seat struct {
	Global uint32
	Name   string
}

// Toplevel is a remote application window. Title and app id are
// tri-state: unset until the first notification arrives.
type Toplevel struct {
	ID               uint32
	Title            string
	AppID            string
	HasTitle         bool
	HasAppID         bool
	VisibleOnMatched bool
	Fullscreen       bool
}

// CurrentChange describes how a commit or closure affected the
// current eligible window.
type CurrentChange int

const (
	CurrentUnchanged CurrentChange = iota
	BecameCurrent
	LostCurrent
)

// Tracker holds all discovery state for one remote session.
type Tracker struct {
	outputName string
	seatName   string

	// requireVisibility adds visibility on the matched output to the
	// window eligibility predicate (configuration choice, see config).
	requireVisibility bool

	outputs   arena[Output]
	seats     arena[Seat]
	toplevels arena[Toplevel]

	outputByGlobal map[uint32]Handle
	seatByGlobal   map[uint32]Handle
	toplevelByID   map[uint32]Handle

	matchedOutput Handle
	matchedSeat   Handle
	current       Handle
}

// New creates a tracker matching the given output and seat names.
func New(outputName, seatName string, requireVisibility bool) *Tracker {
	return &Tracker{
		outputName:        outputName,
		seatName:          seatName,
		requireVisibility: requireVisibility,
		outputByGlobal:    make(map[uint32]Handle),
		seatByGlobal:      make(map[uint32]Handle),
		toplevelByID:      make(map[uint32]Handle),
	}
}

// AddOutput records a newly advertised output, initially unmatched.
func (t *Tracker) AddOutput(global uint32) {
	t.outputByGlobal[global] = t.outputs.alloc(Output{Global: global})
}

// NameOutput records the output's name. If it equals the configured
// target the entry becomes the matched output; the most recently
// named matching entry wins when several advertise the same name.
// Returns true when the matched output changed.
func (t *Tracker) NameOutput(global uint32, name string) bool {
	h, ok := t.outputByGlobal[global]
	if !ok {
		return false
	}
	o, ok := t.outputs.get(h)
	if !ok {
		return false
	}
	o.Name = name
	if name != t.outputName || t.matchedOutput == h {
		return false
	}
	t.matchedOutput = h
	return true
}

// RemoveOutput drops the entry. Returns true when it was the matched
// output; the caller must have destroyed dependent devices already.
func (t *Tracker) RemoveOutput(global uint32) bool {
	h, ok := t.outputByGlobal[global]
	if !ok {
		return false
	}
	wasMatched := h == t.matchedOutput
	if wasMatched {
		t.matchedOutput = Handle{}
	}
	t.outputs.release(h)
	delete(t.outputByGlobal, global)
	return wasMatched
}

// MatchedOutput returns the global id of the matched output.
func (t *Tracker) MatchedOutput() (uint32, bool) {
	o, ok := t.outputs.get(t.matchedOutput)
	if !ok {
		return 0, false
	}
	return o.Global, true
}

// AddSeat records a newly advertised seat.
func (t *Tracker) AddSeat(global uint32) {
	t.seatByGlobal[global] = t.seats.alloc(Seat{Global: global})
}

// NameSeat mirrors NameOutput for seats.
func (t *Tracker) NameSeat(global uint32, name string) bool {
	h, ok := t.seatByGlobal[global]
	if !ok {
		return false
	}
	s, ok := t.seats.get(h)
	if !ok {
		return false
	}
	s.Name = name
	if name != t.seatName || t.matchedSeat == h {
		return false
	}
	t.matchedSeat = h
	return true
}

// RemoveSeat mirrors RemoveOutput for seats.
func (t *Tracker) RemoveSeat(global uint32) bool {
	h, ok := t.seatByGlobal[global]
	if !ok {
		return false
	}
	wasMatched := h == t.matchedSeat
	if wasMatched {
		t.matchedSeat = Handle{}
	}
	t.seats.release(h)
	delete(t.seatByGlobal, global)
	return wasMatched
}

// MatchedSeat returns the global id of the matched seat.
func (t *Tracker) MatchedSeat() (uint32, bool) {
	s, ok := t.seats.get(t.matchedSeat)
	if !ok {
		return 0, false
	}
	return s.Global, true
}

// AddToplevel records a newly opened window.
func (t *Tracker) AddToplevel(id uint32) {
	t.toplevelByID[id] = t.toplevels.alloc(Toplevel{ID: id})
}

// SetToplevelTitle updates the window title.
func (t *Tracker) SetToplevelTitle(id uint32, title string) {
	if tl, ok := t.toplevel(id); ok {
		tl.Title = title
		tl.HasTitle = true
	}
}

// SetToplevelAppID updates the window app identifier.
func (t *Tracker) SetToplevelAppID(id uint32, appID string) {
	if tl, ok := t.toplevel(id); ok {
		tl.AppID = appID
		tl.HasAppID = true
	}
}

// SetToplevelFullscreen updates the window fullscreen state.
func (t *Tracker) SetToplevelFullscreen(id uint32, fullscreen bool) {
	if tl, ok := t.toplevel(id); ok {
		tl.Fullscreen = fullscreen
	}
}

// ToplevelOutputEnter marks the window visible when it entered the
// matched output; other outputs are ignored.
func (t *Tracker) ToplevelOutputEnter(id, outputGlobal uint32) {
	if !t.isMatchedOutputGlobal(outputGlobal) {
		return
	}
	if tl, ok := t.toplevel(id); ok {
		tl.VisibleOnMatched = true
	}
}

// ToplevelOutputLeave clears the visibility flag for the matched
// output.
func (t *Tracker) ToplevelOutputLeave(id, outputGlobal uint32) {
	if !t.isMatchedOutputGlobal(outputGlobal) {
		return
	}
	if tl, ok := t.toplevel(id); ok {
		tl.VisibleOnMatched = false
	}
}

// CommitToplevel applies the eligibility predicate at the window's
// commit point and updates the current eligible window. At most one
// window is ever current.
func (t *Tracker) CommitToplevel(id uint32) CurrentChange {
	h, ok := t.toplevelByID[id]
	if !ok {
		return CurrentUnchanged
	}
	tl, ok := t.toplevels.get(h)
	if !ok {
		return CurrentUnchanged
	}

	if t.eligible(tl) {
		if t.current != h {
			t.current = h
			return BecameCurrent
		}
		return CurrentUnchanged
	}
	if t.current == h {
		t.current = Handle{}
		return LostCurrent
	}
	return CurrentUnchanged
}

// CloseToplevel drops the entry. Returns true when the closed window
// was the current eligible one.
func (t *Tracker) CloseToplevel(id uint32) bool {
	h, ok := t.toplevelByID[id]
	if !ok {
		return false
	}
	wasCurrent := h == t.current
	if wasCurrent {
		t.current = Handle{}
	}
	t.toplevels.release(h)
	delete(t.toplevelByID, id)
	return wasCurrent
}

// Current returns a copy of the current eligible window.
func (t *Tracker) Current() (Toplevel, bool) {
	tl, ok := t.toplevels.get(t.current)
	if !ok {
		return Toplevel{}, false
	}
	return *tl, true
}

func (t *Tracker) eligible(tl *Toplevel) bool {
	if !tl.HasTitle || !tl.HasAppID || !tl.Fullscreen {
		return false
	}
	if t.requireVisibility && !tl.VisibleOnMatched {
		return false
	}
	return true
}

func (t *Tracker) toplevel(id uint32) (*Toplevel, bool) {
	h, ok := t.toplevelByID[id]
	if !ok {
		return nil, false
	}
	return t.toplevels.get(h)
}

func (t *Tracker) isMatchedOutputGlobal(global uint32) bool {
	o, ok := t.outputs.get(t.matchedOutput)
	return ok && o.Global == global
}
