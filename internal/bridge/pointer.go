package bridge

import (
	"time"

	"github.com/bnema/waybridge/internal/host"
	"github.com/bnema/waybridge/internal/logger"
	"github.com/bnema/waybridge/internal/transform"
)

// pointerTarget resolves the (seat, output) pair the pointer should be
// bound to, when all preconditions hold: both names matched, input
// forwarding enabled, cursor grab off.
func (b *Bridge) pointerTarget() (seat, output uint32, ok bool) {
	if !b.forwarding || b.grab {
		return 0, 0, false
	}
	seat, okSeat := b.track.MatchedSeat()
	output, okOutput := b.track.MatchedOutput()
	if !okSeat || !okOutput {
		return 0, 0, false
	}
	return seat, output, true
}

// reevaluatePointer reconciles the virtual pointer device with the
// current preconditions. The device binding is immutable, so a target
// change is destroy then create.
func (b *Bridge) reevaluatePointer() {
	seat, output, want := b.pointerTarget()

	if b.pointer != nil {
		if want && seat == b.boundSeat && output == b.boundOutput {
			return
		}
		b.destroyPointer()
	}
	if !want {
		return
	}
	b.createPointer(seat, output)
}

func (b *Bridge) createPointer(seat, output uint32) {
	pointer, err := b.session.CreatePointer(seat, output)
	if err != nil {
		logger.Errorf("failed to create the virtual pointer: %v", err)
		return
	}
	b.pointer = pointer
	b.boundSeat = seat
	b.boundOutput = output
	logger.Debug("virtual pointer created")

	// The pointer position only matters while a device exists.
	if err := b.bus.Observe(host.PropMousePos); err != nil {
		logger.Errorf("failed to observe the pointer position: %v", err)
	}
}

func (b *Bridge) destroyPointer() {
	if b.pointer == nil {
		return
	}
	if err := b.pointer.Destroy(); err != nil {
		logger.Warnf("failed to destroy the virtual pointer: %v", err)
	}
	b.pointer = nil
	if err := b.bus.Unobserve(host.PropMousePos); err != nil {
		logger.Warnf("failed to stop observing the pointer position: %v", err)
	}
	logger.Debug("virtual pointer destroyed")
}

// onMousePos forwards one host pointer sample to the remote session.
// Samples arriving while the metrics are unknown are skipped.
func (b *Bridge) onMousePos(data any) {
	if b.pointer == nil || !b.hasArea || !b.hasVideo {
		return
	}
	x, okX := host.IntField(data, "x")
	y, okY := host.IntField(data, "y")
	if !okX || !okY {
		return
	}

	rx, ry, ok := transform.Forward(b.area, b.video, x, y)
	if !ok {
		return
	}

	elapsed := uint32(time.Since(b.start).Milliseconds())
	if err := b.pointer.MotionAbsolute(elapsed, uint32(rx), uint32(ry), uint32(b.video.Width), uint32(b.video.Height)); err != nil {
		logger.Warnf("failed to forward pointer motion: %v", err)
		return
	}
	if err := b.pointer.Frame(); err != nil {
		logger.Warnf("failed to frame pointer motion: %v", err)
	}
}
