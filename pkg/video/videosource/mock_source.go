package videosource

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"

	"github.com/tauraamui/pocketcam/pkg/video/videoframe"
)

const (
	mockWidth      = 320
	mockHeight     = 180
	mockFPS        = 30.0
	mockFrameCount = 120
)

type mockBackend struct{}

func (b *mockBackend) Open(ctx context.Context, addr string) (Source, error) {
	return &mockSource{label: addr}, nil
}

// mockSource renders a deterministic moving test pattern: three
// orbiting colour circles with a frame counter overlay. The same
// cursor position always produces the same pixels, which the
// extractor and export tests rely on.
type mockSource struct {
	uuid   string
	mu     sync.Mutex
	closed bool
	label  string
	cursor int64
}

func (s *mockSource) UUID() string {
	if len(s.uuid) == 0 {
		s.uuid = uuid.NewString()
	}
	return s.uuid
}

func (s *mockSource) Metadata() Metadata {
	return Metadata{
		Width:      mockWidth,
		Height:     mockHeight,
		FPS:        mockFPS,
		FrameCount: mockFrameCount,
		Duration:   mockFrameCount / mockFPS,
	}
}

func (s *mockSource) Seek(seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSourceClosed
	}
	s.cursor = clampCursor(int64(math.Round(seconds * mockFPS)))
	return nil
}

func (s *mockSource) Grab(frames int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSourceClosed
	}
	if frames < 1 {
		return nil
	}
	s.cursor = clampCursor(s.cursor + int64(frames))
	return nil
}

func (s *mockSource) Read() (*videoframe.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSourceClosed
	}
	if s.cursor >= mockFrameCount {
		return nil, ErrEndOfStream
	}
	timestamp := float64(s.cursor) / mockFPS
	img, err := renderMockFrame(s.label, s.cursor)
	if err != nil {
		return nil, err
	}
	s.cursor++
	return videoframe.FromRGBA(img, timestamp), nil
}

func (s *mockSource) Timestamp() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, false
	}
	return float64(s.cursor) / mockFPS, true
}

func (s *mockSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *mockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func clampCursor(c int64) int64 {
	if c < 0 {
		return 0
	}
	if c > mockFrameCount {
		return mockFrameCount
	}
	return c
}

func renderMockFrame(label string, cursor int64) (*image.RGBA, error) {
	var hw, hh float64 = mockWidth / 2, mockHeight / 2
	orbit := 55.0
	phase := 2 * math.Pi * float64(cursor) / mockFrameCount
	θ := 2 * math.Pi / 3
	cr := &circle{hw - orbit*math.Sin(phase), hh - orbit*math.Cos(phase), 80}
	cg := &circle{hw - orbit*math.Sin(phase+θ), hh - orbit*math.Cos(phase+θ), 80}
	cb := &circle{hw - orbit*math.Sin(phase-θ), hh - orbit*math.Cos(phase-θ), 80}

	img := image.NewRGBA(image.Rect(0, 0, mockWidth, mockHeight))
	for x := 0; x < mockWidth; x++ {
		for y := 0; y < mockHeight; y++ {
			img.Set(x, y, color.RGBA{
				cr.Brightness(float64(x), float64(y)),
				cg.Brightness(float64(x), float64(y)),
				cb.Brightness(float64(x), float64(y)),
				255,
			})
		}
	}

	if err := drawText(img, 5, 20, label); err != nil {
		return nil, err
	}
	if err := drawText(img, 5, 44, fmt.Sprintf("frame %03d", cursor)); err != nil {
		return nil, err
	}
	if err := drawText(img, 5, 68, fmt.Sprintf("%06.3fs", float64(cursor)/mockFPS)); err != nil {
		return nil, err
	}
	return img, nil
}

var (
	mockFontOnce sync.Once
	mockFont     *truetype.Font
	mockFontErr  error
)

func drawText(canvas *image.RGBA, x, y int, text string) error {
	mockFontOnce.Do(func() {
		mockFont, mockFontErr = freetype.ParseFont(goregular.TTF)
	})
	if mockFontErr != nil {
		return mockFontErr
	}
	drawer := &font.Drawer{
		Dst: canvas,
		Src: image.White,
		Face: truetype.NewFace(mockFont, &truetype.Options{
			Size:    16,
			Hinting: font.HintingFull,
		}),
	}
	drawer.Dot = fixed.P(x, y)
	drawer.DrawString(text)
	return nil
}

type circle struct {
	X, Y, R float64
}

func (c *circle) Brightness(x, y float64) uint8 {
	var dx, dy float64 = c.X - x, c.Y - y
	d := math.Sqrt(dx*dx+dy*dy) / c.R
	if d > 1 {
		return 0
	}
	return 255
}
