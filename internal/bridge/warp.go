package bridge

import (
	"github.com/bnema/waybridge/internal/host"
	"github.com/bnema/waybridge/internal/logger"
	"github.com/bnema/waybridge/internal/transform"
)

// refreshLayoutOrigin queries the window manager for the matched
// output's position in the global layout. Warp events carry layout
// coordinates; the origin translates them to output-relative ones.
func (b *Bridge) refreshLayoutOrigin() {
	if b.wm == nil {
		return
	}
	outputs, err := b.wm.Outputs()
	if err != nil {
		logger.Warnf("failed to query the output layout: %v", err)
		return
	}
	for _, output := range outputs {
		if output.Name == b.outputName && output.Active {
			b.layoutX = output.Rect.X
			b.layoutY = output.Rect.Y
			b.haveOrigin = true
			logger.Debugf("output %q sits at %d,%d in the layout", output.Name, b.layoutX, b.layoutY)
			return
		}
	}
	b.haveOrigin = false
}

// onCursorWarp relays a compositor-initiated pointer warp back to the
// host. Warps are suppressed while the cursor is grabbed: the host
// then owns the pointer position.
func (b *Bridge) onCursorWarp(x, y int64) error {
	if b.grab || !b.haveOrigin || !b.hasArea || !b.hasVideo {
		return nil
	}

	lx := x - b.layoutX
	ly := y - b.layoutY
	hx, hy, ok := transform.Inverse(b.area, b.video, lx, ly)
	if !ok {
		return nil
	}

	return b.bus.Set(host.PropMousePos, map[string]any{
		"x":     hx,
		"y":     hy,
		"hover": true,
	})
}
