// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package frame

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"github.com/GermanBionicSystems/thermowire/ds18x20"
	"github.com/GermanBionicSystems/thermowire/internal/poller"
	"github.com/fogleman/gg"
)

func result() *poller.Result {
	return &poller.Result{
		Cycle: 12,
		At:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Readings: []ds18x20.Reading{
			{Addr: 0x740000070e41ac28, Family: ds18x20.DS18B20, Celsius: 25},
			{Addr: 0x2e000801b7c1d310, Family: ds18x20.DS18S20, Celsius: -10.125},
		},
		Failures: []poller.Failure{{Addr: 0x0b00000e41222228, Err: errors.New("gone")}},
	}
}

// lit counts the pixels that are not black in the rows [y0, y1).
func lit(img image.Image, y0, y1 int) int {
	n := 0
	b := img.Bounds()
	for y := y0; y < y1 && y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if r, g, b, _ := img.At(x, y).RGBA(); r|g|b != 0 {
				n++
			}
		}
	}
	return n
}

func TestRender(t *testing.T) {
	img := Render(result(), 128, 64)
	if b := img.Bounds(); b.Dx() != 128 || b.Dy() != 64 {
		t.Fatal(b)
	}
	// Header, two readings and one failure.
	for i := 0; i < 4; i++ {
		y := margin + i*lineHeight
		if lit(img, y, y+lineHeight) == 0 {
			t.Errorf("line %d is empty", i)
		}
	}
	if n := lit(img, margin+4*lineHeight, 64); n != 0 {
		t.Errorf("%d pixels drawn past the last line", n)
	}
}

func TestRender_clipped(t *testing.T) {
	res := result()
	for i := 0; i < 20; i++ {
		res.Readings = append(res.Readings, res.Readings[0])
	}
	img := Render(res, 128, 32)
	if b := img.Bounds(); b.Dy() != 32 {
		t.Fatal(b)
	}
}

func TestShort(t *testing.T) {
	if s := short(0x740000070e41ac28); s != "28-0e41ac" {
		t.Fatal(s)
	}
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, result(), 64, 32); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 32 {
		t.Fatal(b)
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	if err := Save(path, result(), 128, 64); err != nil {
		t.Fatal(err)
	}
	img, err := gg.LoadPNG(path)
	if err != nil {
		t.Fatal(err)
	}
	if lit(img, 0, 64) == 0 {
		t.Fatal("blank frame")
	}
	if err := Save(filepath.Join(t.TempDir(), "missing", "frame.png"), result(), 8, 8); err == nil {
		t.Fatal("write into a missing directory succeeded")
	}
}
