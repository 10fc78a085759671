package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForward(t *testing.T) {
	tests := []struct {
		name       string
		area       Area
		video      Video
		x, y       int64
		wantX      int64
		wantY      int64
		wantMapped bool
	}{
		{
			name:       "centered point without margins",
			area:       Area{Width: 1920, Height: 1080},
			video:      Video{Width: 1280, Height: 720},
			x:          960,
			y:          540,
			wantX:      640,
			wantY:      360,
			wantMapped: true,
		},
		{
			name:       "point inside left margin clamps to zero",
			area:       Area{MarginLeft: 100, Width: 1920, Height: 1080},
			video:      Video{Width: 1280, Height: 720},
			x:          50,
			y:          540,
			wantX:      0,
			wantY:      360,
			wantMapped: true,
		},
		{
			name:       "point beyond right edge clamps to video width",
			area:       Area{Width: 1920, Height: 1080},
			video:      Video{Width: 1280, Height: 720},
			x:          5000,
			y:          540,
			wantX:      1280,
			wantY:      360,
			wantMapped: true,
		},
		{
			name:       "degenerate horizontal size is undefined",
			area:       Area{MarginLeft: 960, MarginRight: 960, Width: 1920, Height: 1080},
			video:      Video{Width: 1280, Height: 720},
			x:          960,
			y:          540,
			wantMapped: false,
		},
		{
			name:       "zero area is undefined",
			area:       Area{},
			video:      Video{Width: 1280, Height: 720},
			wantMapped: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, ok := Forward(tt.area, tt.video, tt.x, tt.y)
			require.Equal(t, tt.wantMapped, ok)
			if ok {
				assert.Equal(t, tt.wantX, x)
				assert.Equal(t, tt.wantY, y)
			}
		})
	}
}

func TestInverse(t *testing.T) {
	area := Area{MarginLeft: 40, MarginTop: 20, Width: 1640, Height: 920}
	video := Video{Width: 3840, Height: 2160}

	t.Run("maps origin to the margins", func(t *testing.T) {
		x, y, ok := Inverse(area, video, 0, 0)
		require.True(t, ok)
		assert.Equal(t, int64(40), x)
		assert.Equal(t, int64(20), y)
	})

	t.Run("clamps to the drawing area", func(t *testing.T) {
		x, y, ok := Inverse(area, video, 100000, 100000)
		require.True(t, ok)
		assert.Equal(t, area.Width, x)
		assert.Equal(t, area.Height, y)
	})

	t.Run("zero video size is undefined", func(t *testing.T) {
		_, _, ok := Inverse(area, Video{}, 10, 10)
		assert.False(t, ok)
	})
}

// Forward then inverse must reproduce any interior point within one
// unit in each axis. Holds when the video is at least as large as the
// inner drawing area, which is the shape this bridge runs with: a
// native-resolution remote desktop scaled down into the host window.
func TestRoundTrip(t *testing.T) {
	area := Area{MarginLeft: 100, MarginRight: 60, MarginTop: 30, MarginBottom: 10, Width: 1920, Height: 1080}
	video := Video{Width: 3840, Height: 2160}

	for x := area.MarginLeft + 1; x < area.Width-area.MarginRight; x += 37 {
		for y := area.MarginTop + 1; y < area.Height-area.MarginBottom; y += 41 {
			rx, ry, ok := Forward(area, video, x, y)
			require.True(t, ok)

			bx, by, ok := Inverse(area, video, rx, ry)
			require.True(t, ok)

			if diff := bx - x; diff < -1 || diff > 1 {
				t.Fatalf("x round trip drifted: %d -> %d -> %d", x, rx, bx)
			}
			if diff := by - y; diff < -1 || diff > 1 {
				t.Fatalf("y round trip drifted: %d -> %d -> %d", y, ry, by)
			}
		}
	}
}
