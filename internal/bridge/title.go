package bridge

import (
	"fmt"

	"github.com/bnema/waybridge/internal/host"
	"github.com/bnema/waybridge/internal/tracker"
)

// onToplevelCommit applies the window's accumulated changes and
// refreshes the title when the current eligible window is affected.
func (b *Bridge) onToplevelCommit(id uint32) error {
	if b.track.CommitToplevel(id) == tracker.LostCurrent {
		return b.setGenericTitle()
	}
	current, ok := b.track.Current()
	if !ok || current.ID != id {
		return nil
	}
	// The committed window is current; mirror its identity even when
	// only the title text changed.
	return b.setEligibleTitle(current.AppID, current.Title)
}

func (b *Bridge) setEligibleTitle(appID, title string) error {
	return b.bus.Set(host.PropMediaTitle,
		fmt.Sprintf("[%s] %s [%s %s %s]", appID, title, b.displayName, b.outputName, b.seatName))
}

func (b *Bridge) setGenericTitle() error {
	return b.bus.Set(host.PropMediaTitle,
		fmt.Sprintf("Remote desktop [%s %s %s]", b.displayName, b.outputName, b.seatName))
}
