// Package display provides the render surfaces: a Fyne window for hosts with
// a screen and a headless surface for daemons and tests.
package display

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// Window is a fixed-size photo-frame window. Paint may be called from any
// goroutine; updates are marshalled onto the Fyne main loop.
type Window struct {
	win         fyne.Window
	img         *canvas.Image
	placeholder *widget.Label
	bounds      image.Rectangle
}

// NewWindow builds the frame window. It shows a placeholder message until the
// first frame is painted; the caller decides when to Show and runs the app
// loop on the main goroutine.
func NewWindow(app fyne.App, width, height int) *Window {
	w := &Window{
		win:         app.NewWindow("PhotoFrame"),
		img:         canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, width, height))),
		placeholder: widget.NewLabel("No images on storage"),
		bounds:      image.Rect(0, 0, width, height),
	}
	w.img.FillMode = canvas.ImageFillContain
	w.win.SetContent(container.NewStack(w.img, w.placeholder))
	w.win.Resize(fyne.NewSize(float32(width), float32(height)))
	w.win.SetFixedSize(true)
	return w
}

// Bounds returns the paintable area.
func (w *Window) Bounds() image.Rectangle { return w.bounds }

// Paint replaces the displayed frame.
func (w *Window) Paint(m image.Image) {
	fyne.Do(func() {
		w.placeholder.Hide()
		w.img.Image = m
		w.img.Refresh()
	})
}

// Show makes the window visible.
func (w *Window) Show() { w.win.Show() }
