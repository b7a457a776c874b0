package parse

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statusLine = "frame=  42 fps= 25 q=28.0 size=     256kB time=00:00:01.68 bitrate=1248.3kbits/s speed=1.02x"

func TestEstimate(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		total int
		want  float64
		ok    bool
	}{
		{"status line", "...frame=  42 fps=...", 200, 21.0, true},
		{"full status line", statusLine, 84, 50.0, true},
		{"no padding", "frame=100 fps=30", 100, 100.0, true},
		{"past expected total", "frame=  300 fps=30", 200, 150.0, true},
		{"zero frame", "frame=    0 fps=0.0", 10, 0, true},
		{"marker at end", "frame=", 100, 0, false},
		{"marker then blanks", "frame=     ", 100, 0, false},
		{"no marker", "Stream #0:0: Video: h264", 100, 0, false},
		{"empty line", "", 100, 0, false},
		{"not a number", "frame=N/A fps=0", 100, 0, false},
		{"digits glued to text", "frame=12abc fps=1", 100, 0, false},
		{"second marker cuts token", "frame=frame=5", 100, 0, false},
		{"zero total", "frame=  42 fps=25", 0, 0, false},
		{"negative total", "frame=  42 fps=25", -5, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Estimate(tt.line, tt.total)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParser_Progress(t *testing.T) {
	p := New(Config{LogLines: 10})

	assert.Zero(t, p.Parse("Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'in.mp4':"))
	frame := p.Parse(statusLine)
	assert.Equal(t, uint64(42), frame)

	prog := p.Progress()
	assert.Equal(t, uint64(42), prog.Frame)
	assert.InDelta(t, 25.0, prog.FPS, 1e-9)
	assert.InDelta(t, 28.0, prog.Quantizer, 1e-9)
	assert.Equal(t, uint64(256*1024), prog.Size)
	assert.InDelta(t, 1.68, prog.Time, 1e-9)
	assert.InDelta(t, 1.02, prog.Speed, 1e-9)

	p.ResetStats()
	assert.Equal(t, Progress{}, p.Progress())
}

func TestParser_DefaultLogLines(t *testing.T) {
	p := New(Config{})
	for i := 0; i < 150; i++ {
		p.Parse(fmt.Sprintf("line %d", i))
	}
	assert.Len(t, p.Log(), 100)
}

func TestParser_LogRing(t *testing.T) {
	p := New(Config{LogLines: 3})
	for i := 0; i < 5; i++ {
		p.Parse(fmt.Sprintf("line %d", i))
	}

	out := p.LastCommandOutput()
	require.Len(t, out, 3)
	assert.Equal(t, []string{"line 2", "line 3", "line 4"}, out)

	lines := p.Log()
	require.Len(t, lines, 3)
	assert.False(t, lines[0].Timestamp.IsZero())

	p.ResetLog()
	assert.Empty(t, p.Log())
}
