package bridge

import (
	"io"

	"github.com/bnema/waybridge/internal/host"
	"github.com/bnema/waybridge/internal/logger"
	"github.com/bnema/waybridge/internal/remote"
)

var clipboardProps = [2]string{
	slotRegular: host.PropClipboardText,
	slotPrimary: host.PropClipboardTextPrimary,
}

func slot(primary bool) int {
	if primary {
		return slotPrimary
	}
	return slotRegular
}

// reevaluateClipboard reconciles the clipboard device with its
// preconditions: matched seat, forwarding enabled, and compositor
// support. Grab does not affect the clipboard. Like the pointer, the
// seat binding is immutable, so a seat change is destroy then create.
func (b *Bridge) reevaluateClipboard() {
	seat, okSeat := b.track.MatchedSeat()
	want := okSeat && b.forwarding && b.session.HasClipboardManager()

	if b.clipboard != nil {
		if want && seat == b.clipboardSeat {
			return
		}
		b.destroyClipboard()
	}
	if !want {
		return
	}

	clipboard, err := b.session.CreateClipboard(seat)
	if err != nil {
		logger.Errorf("failed to create the clipboard device: %v", err)
		return
	}
	b.clipboard = clipboard
	b.clipboardSeat = seat
	logger.Debug("clipboard device created")

	for _, prop := range clipboardProps {
		if err := b.bus.Observe(prop); err != nil {
			logger.Errorf("failed to observe %s: %v", prop, err)
		}
	}
}

func (b *Bridge) destroyClipboard() {
	if b.clipboard == nil {
		return
	}
	for i, src := range b.sources {
		if src != nil {
			if err := src.Destroy(); err != nil {
				logger.Warnf("failed to destroy a selection source: %v", err)
			}
			b.sources[i] = nil
		}
	}
	if err := b.clipboard.Destroy(); err != nil {
		logger.Warnf("failed to destroy the clipboard device: %v", err)
	}
	b.clipboard = nil
	for _, prop := range clipboardProps {
		if err := b.bus.Unobserve(prop); err != nil {
			logger.Warnf("failed to stop observing %s: %v", prop, err)
		}
	}
	logger.Debug("clipboard device destroyed")
}

// publishSelection installs the host's text as the remote selection of
// the given kind. The new source is installed before the previous one
// is destroyed so the selection never transits through an unowned
// state. Empty text clears the selection.
func (b *Bridge) publishSelection(text string, primary bool) {
	if b.clipboard == nil {
		return
	}
	idx := slot(primary)
	old := b.sources[idx]

	if text == "" {
		if err := b.clipboard.SetSelection(nil, primary); err != nil {
			logger.Warnf("failed to clear the remote selection: %v", err)
		}
		b.sources[idx] = nil
	} else {
		mimes := make([]string, 0, len(remote.TextMimes)+1)
		mimes = append(mimes, remote.TextMimes...)
		mimes = append(mimes, b.selfMime)

		src, err := b.clipboard.NewSource(text, mimes)
		if err != nil {
			logger.Errorf("failed to create a selection source: %v", err)
			return
		}
		if err := b.clipboard.SetSelection(src, primary); err != nil {
			logger.Warnf("failed to install the remote selection: %v", err)
			if derr := src.Destroy(); derr != nil {
				logger.Warnf("failed to destroy the unused source: %v", derr)
			}
			return
		}
		b.sources[idx] = src
	}

	if old != nil {
		if err := old.Destroy(); err != nil {
			logger.Warnf("failed to destroy the replaced source: %v", err)
		}
	}
}

// onOfferMime records one advertised MIME type for a pending offer.
// The self tag marks the offer as our own echo; among the recognized
// text types the highest-priority one wins.
func (b *Bridge) onOfferMime(offer remote.Offer, mime string) {
	state, ok := b.offers[offer]
	if !ok || state.own {
		return
	}
	if mime == b.selfMime {
		state.own = true
		return
	}
	for i, candidate := range remote.TextMimes {
		if mime == candidate {
			if state.mimeIdx < 0 || i < state.mimeIdx {
				state.mimeIdx = i
			}
			return
		}
	}
}

// onSelectionCommitted mirrors a committed remote selection into the
// host. A nil offer clears the host property; our own echoes and
// offers with no recognized text type are discarded unread.
func (b *Bridge) onSelectionCommitted(offer remote.Offer, primary bool) error {
	prop := clipboardProps[slot(primary)]

	if offer == nil {
		return b.bus.Set(prop, "")
	}

	state := b.offers[offer]
	delete(b.offers, offer)
	defer func() {
		if err := offer.Destroy(); err != nil {
			logger.Warnf("failed to destroy a consumed offer: %v", err)
		}
	}()

	if state == nil || state.own || state.mimeIdx < 0 {
		return nil
	}

	rc, err := offer.Receive(remote.TextMimes[state.mimeIdx])
	if err != nil {
		logger.Warnf("failed to start a selection transfer: %v", err)
		return nil
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		// A failed transfer aborts this mirror only, not the bridge.
		logger.Warnf("selection transfer failed: %v", err)
		return nil
	}

	return b.bus.Set(prop, string(data))
}

// onSourceCancelled drops a source another remote client replaced.
func (b *Bridge) onSourceCancelled(src remote.Source) {
	for i, installed := range b.sources {
		if installed == src {
			if err := src.Destroy(); err != nil {
				logger.Warnf("failed to destroy a cancelled source: %v", err)
			}
			b.sources[i] = nil
			return
		}
	}
}
