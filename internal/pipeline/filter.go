package pipeline

import (
	"crypto/md5"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"

	"github.com/corona10/goimagehash"
)

// changeFilter passes text only when it differs from the last text that passed.
// The hash is stored before downstream stages run, so a failed translation is not retried.
type changeFilter struct {
	mu   sync.Mutex
	last [md5.Size]byte
	seen bool
}

func (f *changeFilter) pass(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	sum := md5.Sum([]byte(text))

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen && sum == f.last {
		return false
	}
	f.last, f.seen = sum, true
	return true
}

func (f *changeFilter) reset() {
	f.mu.Lock()
	f.seen = false
	f.mu.Unlock()
}

// frameSkipper drops frames identical to the previous one. The perception hash
// is the cheap first check; a pixel digest confirms the match, so any change to
// the screen, however small, still reaches OCR.
type frameSkipper struct {
	mu       sync.Mutex
	lastHash *goimagehash.ImageHash
	lastSum  [md5.Size]byte
	hasSum   bool
}

func (s *frameSkipper) similar(img image.Image) bool {
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return false
	}
	sum, ok := pixelSum(img)

	s.mu.Lock()
	defer s.mu.Unlock()

	prevHash, prevSum, prevOK := s.lastHash, s.lastSum, s.hasSum
	s.lastHash, s.lastSum, s.hasSum = hash, sum, ok
	if prevHash == nil || !ok || !prevOK {
		return false
	}
	if dist, err := prevHash.Distance(hash); err != nil || dist > MaxHashDistance {
		return false
	}
	if sum != prevSum {
		return false
	}
	slog.Debug("skipping OCR for identical frame")
	return true
}

// pixelSum digests the visible pixels of an RGBA image; other image types report false.
func pixelSum(img image.Image) ([md5.Size]byte, bool) {
	var sum [md5.Size]byte
	rgba, ok := img.(*image.RGBA)
	if !ok {
		return sum, false
	}
	b := rgba.Bounds()
	h := md5.New()
	fmt.Fprintf(h, "%dx%d;", b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := rgba.PixOffset(b.Min.X, y)
		h.Write(rgba.Pix[i : i+b.Dx()*4])
	}
	copy(sum[:], h.Sum(nil))
	return sum, true
}

func (s *frameSkipper) reset() {
	s.mu.Lock()
	s.lastHash = nil
	s.hasSum = false
	s.mu.Unlock()
}
