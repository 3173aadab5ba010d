// Package memview draws a map of physical memory as seen through a page
// table: one cell per physical page, colored by the state of the virtual
// page mapped onto it.
package memview

import (
	"image"
	"image/color"
	"io"

	"github.com/fogleman/gg"

	"nachos/pkg/machine"
)

// PageClass is the state a physical page is drawn in.
type PageClass int

const (
	// Unmapped frames back no valid virtual page.
	Unmapped PageClass = iota
	// Mapped frames back a valid page that has not been touched.
	Mapped
	// Used frames have been read.
	Used
	// Dirty frames have been written.
	Dirty
	// ReadOnly frames back a read-only page.
	ReadOnly
)

// Palette holds the color for each PageClass.
var Palette = map[PageClass]color.RGBA{
	Unmapped: {0x40, 0x40, 0x40, 0xff},
	Mapped:   {0xe0, 0xe0, 0xe0, 0xff},
	Used:     {0x5b, 0x9b, 0xd5, 0xff},
	Dirty:    {0xed, 0x7d, 0x31, 0xff},
	ReadOnly: {0x70, 0xad, 0x47, 0xff},
}

var background = color.RGBA{0x10, 0x10, 0x10, 0xff}

// Options control the layout.
type Options struct {
	// Columns is the number of cells per row. Defaults to 16.
	Columns int
	// CellSize is the edge of a cell in pixels. Defaults to 16.
	CellSize int
	// Gap is the space between cells in pixels. Zero selects the default
	// of 2 and a negative value packs cells edge to edge.
	Gap int
}

func (o Options) withDefaults() Options {
	if o.Columns <= 0 {
		o.Columns = 16
	}
	if o.CellSize <= 0 {
		o.CellSize = 16
	}
	if o.Gap < 0 {
		o.Gap = 0
	} else if o.Gap == 0 {
		o.Gap = 2
	}
	return o
}

// Classify returns the class of every physical page given a page table.
func Classify(pt []machine.TranslationEntry, numPhysPages int) []PageClass {
	classes := make([]PageClass, numPhysPages)
	for _, e := range pt {
		if !e.Valid || e.PPN < 0 || e.PPN >= numPhysPages {
			continue
		}
		switch {
		case e.Dirty:
			classes[e.PPN] = Dirty
		case e.ReadOnly:
			classes[e.PPN] = ReadOnly
		case e.Used:
			classes[e.PPN] = Used
		default:
			classes[e.PPN] = Mapped
		}
	}
	return classes
}

// CellOrigin returns the top-left pixel of the cell for physical page ppn.
func CellOrigin(ppn int, opts Options) (x, y int) {
	opts = opts.withDefaults()
	pitch := opts.CellSize + opts.Gap
	return opts.Gap + (ppn%opts.Columns)*pitch, opts.Gap + (ppn/opts.Columns)*pitch
}

// Render draws the memory map.
func Render(pt []machine.TranslationEntry, numPhysPages int, opts Options) image.Image {
	opts = opts.withDefaults()
	rows := max(1, (numPhysPages+opts.Columns-1)/opts.Columns)
	pitch := opts.CellSize + opts.Gap

	dc := gg.NewContext(opts.Gap+opts.Columns*pitch, opts.Gap+rows*pitch)
	dc.SetColor(background)
	dc.Clear()

	for ppn, class := range Classify(pt, numPhysPages) {
		x, y := CellOrigin(ppn, opts)
		dc.DrawRectangle(float64(x), float64(y), float64(opts.CellSize), float64(opts.CellSize))
		dc.SetColor(Palette[class])
		dc.Fill()
	}
	return dc.Image()
}

// WritePNG renders the memory map and encodes it as PNG.
func WritePNG(w io.Writer, pt []machine.TranslationEntry, numPhysPages int, opts Options) error {
	img := Render(pt, numPhysPages, opts)
	return gg.NewContextForImage(img).EncodePNG(w)
}
