// Package transform maps pointer coordinates between the host drawing
// area and remote video pixels.
//
// The drawing area is the on-screen rectangle the video is rendered
// into, including letterbox margins; the video size is the native
// pixel size of the decoded buffer. Both directions use truncating
// integer arithmetic so that a forward/inverse round trip stays
// within one unit of the input.
package transform

// Area describes the host drawing rectangle and its margins.
type Area struct {
	MarginLeft   int64
	MarginRight  int64
	MarginTop    int64
	MarginBottom int64
	Width        int64
	Height       int64
}

// Video describes the native pixel size of the video buffer.
type Video struct {
	Width  int64
	Height int64
}

// inner returns the drawing-area size with margins removed.
func (a Area) inner() (int64, int64) {
	return a.Width - a.MarginLeft - a.MarginRight,
		a.Height - a.MarginTop - a.MarginBottom
}

// Forward maps a host pointer position to remote video pixels. The
// second return is false when the metrics are degenerate and no
// mapping exists; callers must skip the event.
func Forward(a Area, v Video, x, y int64) (int64, int64, bool) {
	dx, dy := a.inner()
	if dx == 0 || dy == 0 {
		return 0, 0, false
	}

	rx := (x - a.MarginLeft) * v.Width / dx
	ry := (y - a.MarginTop) * v.Height / dy

	return clamp(rx, v.Width), clamp(ry, v.Height), true
}

// Inverse maps remote video pixels back to a host pointer position.
func Inverse(a Area, v Video, lx, ly int64) (int64, int64, bool) {
	dx, dy := a.inner()
	if dx == 0 || dy == 0 || v.Width == 0 || v.Height == 0 {
		return 0, 0, false
	}

	x := lx*dx/v.Width + a.MarginLeft
	y := ly*dy/v.Height + a.MarginTop

	return clamp(x, a.Width), clamp(y, a.Height), true
}

func clamp(n, max int64) int64 {
	if n < 0 {
		return 0
	}
	if n > max {
		return max
	}
	return n
}
