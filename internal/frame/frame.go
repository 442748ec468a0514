// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package frame renders poll results as a small image, sized for the
// monochrome panels periph drives (128x64 by default).
package frame

import (
	"fmt"
	"image"
	"io"

	"github.com/GermanBionicSystems/thermowire/ds18x20"
	"github.com/GermanBionicSystems/thermowire/internal/poller"
	"github.com/fogleman/gg"
	"github.com/pkg/errors"
	"golang.org/x/image/font/basicfont"
	"periph.io/x/conn/v3/onewire"
)

const (
	margin     = 2
	lineHeight = 13
)

// Draw lays out res on a w by h context: a header line then one line per
// sensor, failures last. Lines that do not fit are dropped.
func Draw(res *poller.Result, w, h int) *gg.Context {
	dc := gg.NewContext(w, h)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	f := basicfont.Face7x13
	dc.SetFontFace(f)

	y := float64(margin + lineHeight - f.Descent)
	line := func(s string) bool {
		if y > float64(h) {
			return false
		}
		dc.DrawString(s, margin, y)
		y += lineHeight
		return true
	}

	dc.SetRGB(1, 1, 1)
	header := fmt.Sprintf("#%d %s", res.Cycle, res.At.Format("15:04:05"))
	if res.Err != nil {
		header += " ERR"
	}
	line(header)
	for i := range res.Readings {
		r := &res.Readings[i]
		if !line(fmt.Sprintf("%s %6.2fC", short(r.Addr), r.Celsius)) {
			return dc
		}
	}
	for _, f := range res.Failures {
		if !line(short(f.Addr) + "   fail") {
			return dc
		}
	}
	return dc
}

// Render returns the image of res.
func Render(res *poller.Result, w, h int) image.Image {
	return Draw(res, w, h).Image()
}

// Encode writes the image of res as PNG.
func Encode(out io.Writer, res *poller.Result, w, h int) error {
	return errors.Wrap(Draw(res, w, h).EncodePNG(out), "failed to encode frame")
}

// Save writes the image of res to a PNG file.
func Save(path string, res *poller.Result, w, h int) error {
	return errors.Wrapf(gg.SavePNG(path, Render(res, w, h)), "failed to save frame to %s", path)
}

// short keeps the family code and the low 24 bits of the serial number to
// fit narrow panels.
func short(a onewire.Address) string {
	id := ds18x20.ID(a)
	return id[:3] + id[len(id)-6:]
}
