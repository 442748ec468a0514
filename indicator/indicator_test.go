// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package indicator

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/GermanBionicSystems/thermowire/common"
)

func TestLED(t *testing.T) {
	data := []struct {
		err  error
		want int
	}{
		{nil, -1},
		{common.ErrInvalidBit, 1},
		{fmt.Errorf("owgpio: %w 2", common.ErrInvalidBit), 1},
		{common.ErrChecksum, 2},
		{fmt.Errorf("ds18x20: scratchpad: %w", common.ErrChecksum), 2},
		{common.ErrNoDevice, 7},
		{fmt.Errorf("owgpio: search bit 3: %w", common.ErrNoDevice), 7},
		{common.ShortedError("shorted"), 0},
		{errors.New("pin gone"), 0},
	}
	for i, line := range data {
		if got := LED(line.err); got != line.want {
			t.Errorf("#%d: LED(%v) = %d, want %d", i, line.err, got, line.want)
		}
	}
}

func TestIndicate(t *testing.T) {
	var buf bytes.Buffer
	d := New(&Opts{W: &buf})
	if d.Lit() != -1 {
		t.Fatal("a LED is lit at start")
	}
	if err := d.Indicate(common.ErrChecksum); err != nil {
		t.Fatal(err)
	}
	if d.Lit() != 2 {
		t.Fatalf("lit %d", d.Lit())
	}
	for i := 0; i < LEDs; i++ {
		want := byte(0)
		if i == 2 {
			want = 255
		}
		if d.pixels[3*i] != want || d.pixels[3*i+1] != 0 || d.pixels[3*i+2] != 0 {
			t.Fatalf("LED %d: %v", i, d.pixels[3*i:3*i+3])
		}
	}
	out := buf.String()
	if !strings.HasPrefix(out, "\r\033[0m") || !strings.HasSuffix(out, "\033[0m ") {
		t.Fatalf("unexpected output %q", out)
	}
	if err := d.Indicate(nil); err != nil {
		t.Fatal(err)
	}
	if d.Lit() != -1 || d.pixels != [3 * LEDs]byte{} {
		t.Fatal("LEDs not cleared")
	}
}

func TestSet_range(t *testing.T) {
	d := New(&Opts{W: &bytes.Buffer{}})
	if err := d.Set(LEDs); err == nil {
		t.Fatal("out of range LED accepted")
	}
	if err := d.Set(LEDs - 1); err != nil {
		t.Fatal(err)
	}
}

func TestDraw(t *testing.T) {
	d := New(&Opts{W: &bytes.Buffer{}, On: color.NRGBA{G: 255, A: 255}})
	if b := d.Bounds(); b.Dx() != LEDs || b.Dy() != 1 {
		t.Fatal(b)
	}
	img := image.NewNRGBA(image.Rect(0, 0, 16, 1))
	img.SetNRGBA(3, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	if err := d.Draw(d.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	if got := d.pixels[9:12]; !bytes.Equal(got, []byte{10, 20, 30}) {
		t.Fatalf("pixel 3: %v", got)
	}
	if d.Lit() != -1 {
		t.Fatal("Draw must not report a lit LED")
	}
	if _, err := d.Write([]byte{1, 2}); err == nil {
		t.Fatal("invalid stream accepted")
	}
}

func TestHalt(t *testing.T) {
	var buf bytes.Buffer
	d := New(&Opts{W: &buf})
	if err := d.Set(7); err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(buf.String(), "\n\033[0m") || d.Lit() != -1 {
		t.Fatalf("unexpected halt output %q", buf.String())
	}
	if s := d.String(); s != "Indicator" {
		t.Fatal(s)
	}
}
