// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package indicator shows the state of a 1-wire bus on a row of 8 LEDs
// emulated on the terminal using ANSI color codes.
//
// Each error kind lights a single LED:
//
//	LED 1: invalid bit value (programming error)
//	LED 2: checksum failure
//	LED 7: no device present
//	LED 0: any other failure
//
// Dev is also a display.Drawer so the row can be driven as a 8x1 image.
package indicator

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/GermanBionicSystems/thermowire/common"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/onewire"
)

// LEDs is the number of LEDs in the row.
const LEDs = 8

// Opts represents the options available for this display.
type Opts struct {
	// W receives the ANSI output. It defaults to a colorable stdout.
	W       io.Writer
	Palette *ansi256.Palette
	// On is the color of a lit LED. It defaults to red.
	On color.NRGBA

	_ struct{}
}

// Dev is a row of LEDs emulated on the console.
type Dev struct {
	mu      sync.Mutex
	w       io.Writer
	palette ansi256.Palette
	on      color.NRGBA

	pixels [3 * LEDs]byte
	lit    int
	buf    bytes.Buffer
}

// New returns a Dev that displays at the console with all LEDs off.
func New(opts *Opts) *Dev {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	on := opts.On
	if on == (color.NRGBA{}) {
		on = color.NRGBA{R: 255, A: 255}
	}
	return &Dev{w: w, palette: *p, on: on, lit: -1}
}

func (d *Dev) String() string {
	return "Indicator"
}

// Halt implements conn.Resource.
//
// It turns the LEDs off and resets the terminal colors.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pixels = [3 * LEDs]byte{}
	d.lit = -1
	if _, err := d.refresh(); err != nil {
		return err
	}
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// LED returns the LED that reports err, or -1 for nil.
func LED(err error) int {
	var nd onewire.NoDevicesError
	switch {
	case err == nil:
		return -1
	case errors.Is(err, common.ErrInvalidBit):
		return 1
	case errors.Is(err, common.ErrChecksum):
		return 2
	case errors.As(err, &nd) && nd.NoDevices():
		return 7
	default:
		return 0
	}
}

// Indicate lights the LED reporting err, or turns all LEDs off when err is
// nil.
func (d *Dev) Indicate(err error) error {
	return d.Set(LED(err))
}

// Set lights only the LED at index i. A negative index turns all LEDs off.
func (d *Dev) Set(i int) error {
	if i >= LEDs {
		return fmt.Errorf("indicator: LED %d out of range", i)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pixels = [3 * LEDs]byte{}
	if i >= 0 {
		d.pixels[3*i] = d.on.R
		d.pixels[3*i+1] = d.on.G
		d.pixels[3*i+2] = d.on.B
	}
	d.lit = i
	_, err := d.refresh()
	return err
}

// Lit returns the LED lit by the last Set or Indicate call, or -1.
func (d *Dev) Lit() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lit
}

// Write accepts a stream of raw RGB pixels and writes it to the console.
func (d *Dev) Write(pixels []byte) (int, error) {
	if len(pixels)%3 != 0 {
		return 0, errors.New("indicator: invalid RGB stream length")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(d.pixels[:], pixels)
	d.lit = -1
	return d.refresh()
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rectangle{Max: image.Point{X: LEDs, Y: 1}}
}

// Draw implements display.Drawer.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(d.Bounds())
	srcR := src.Bounds()
	srcR.Min = srcR.Min.Add(sp)
	if dX := r.Dx(); dX < srcR.Dx() {
		srcR.Max.X = srcR.Min.X + dX
	}
	if dY := r.Dy(); dY < srcR.Dy() {
		srcR.Max.Y = srcR.Min.Y + dY
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	deltaX3 := 3 * (r.Min.X - srcR.Min.X)
	for sX := srcR.Min.X; sX < srcR.Max.X; sX++ {
		r16, g16, b16, _ := src.At(sX, srcR.Min.Y).RGBA()
		dX3 := 3*sX + deltaX3
		d.pixels[dX3] = byte(r16 >> 8)
		d.pixels[dX3+1] = byte(g16 >> 8)
		d.pixels[dX3+2] = byte(b16 >> 8)
	}
	d.lit = -1
	_, err := d.refresh()
	return err
}

func (d *Dev) refresh() (int, error) {
	d.buf.Reset()
	_, _ = d.buf.WriteString("\r\033[0m")
	for i := 0; i < LEDs; i++ {
		c := color.NRGBA{d.pixels[3*i], d.pixels[3*i+1], d.pixels[3*i+2], 255}
		_, _ = io.WriteString(&d.buf, d.palette.Block(c))
	}
	_, _ = d.buf.WriteString("\033[0m ")
	_, err := d.buf.WriteTo(d.w)
	return len(d.pixels), err
}

var _ conn.Resource = &Dev{}
var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
