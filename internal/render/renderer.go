// Package render decodes one image file at a time and paints it onto the
// display surface.
package render

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"photoframe/internal/storage"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"
)

// Surface is the display the renderer paints onto. Implementations must
// tolerate Paint being called from a non-main goroutine.
type Surface interface {
	Bounds() image.Rectangle
	Paint(img image.Image)
}

// Renderer owns the decode-and-paint path. It holds the storage bus only for
// the duration of one decode; the painted frame stays on screen after the
// lock is released.
type Renderer struct {
	bus     *storage.Bus
	surface Surface
	log     *logrus.Entry
}

func New(bus *storage.Bus, surface Surface, log *logrus.Entry) *Renderer {
	return &Renderer{bus: bus, surface: surface, log: log}
}

// Render decodes the named image under the bus lock and paints it centered on
// the surface. On decode failure the previous frame is left on screen and the
// error is returned for the caller to log.
func (r *Renderer) Render(name string) error {
	var decoded image.Image
	err := r.bus.With(func(h *storage.Handle) error {
		if err := h.Require(storage.ModeCatalog); err != nil {
			return err
		}
		path := filepath.Join(h.Dir(), filepath.Base(name))
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("render: open %s: %w", name, err)
		}
		defer f.Close()

		img, err := jpeg.Decode(f)
		if err != nil {
			return fmt.Errorf("render: decode %s: %w", name, err)
		}
		decoded = orient(f, img)
		return nil
	})
	if err != nil {
		return err
	}

	r.surface.Paint(Compose(decoded, r.surface.Bounds()))
	return nil
}

// orient applies the EXIF orientation tag, if any, to a decoded image. The
// file is re-read from the start for the EXIF scan; errors mean "no usable
// orientation" and leave the image untouched.
func orient(f *os.File, img image.Image) image.Image {
	if _, err := f.Seek(0, 0); err != nil {
		return img
	}
	x, err := exif.Decode(f)
	if err != nil {
		return img
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return img
	}
	o, err := tag.Int(0)
	if err != nil {
		return img
	}
	switch o {
	case 3:
		return rotate180(img)
	case 6:
		return rotate90(img)
	case 8:
		return rotate270(img)
	default:
		return img
	}
}

func rotate90(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(b.Max.Y-1-y, x-b.Min.X, src.At(x, y))
		}
	}
	return dst
}

func rotate180(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(b.Max.X-1-x, b.Max.Y-1-y, src.At(x, y))
		}
	}
	return dst
}

func rotate270(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(y-b.Min.Y, b.Max.X-1-x, src.At(x, y))
		}
	}
	return dst
}

// Compose scales src to fit within bounds preserving aspect ratio and centers
// it on a black backdrop of exactly the surface size, so a frame smaller than
// the display never leaves remnants of the previous image visible.
func Compose(src image.Image, bounds image.Rectangle) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	// backdrop stays zeroed (black)

	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 || bounds.Dx() == 0 || bounds.Dy() == 0 {
		return dst
	}

	scale := min(float64(bounds.Dx())/float64(sb.Dx()), float64(bounds.Dy())/float64(sb.Dy()))
	w := int(float64(sb.Dx()) * scale)
	h := int(float64(sb.Dy()) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	x0 := (bounds.Dx() - w) / 2
	y0 := (bounds.Dy() - h) / 2
	target := image.Rect(x0, y0, x0+w, y0+h)

	xdraw.CatmullRom.Scale(dst, target, src, sb, xdraw.Over, nil)
	return dst
}
