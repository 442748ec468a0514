// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rpiopin

import "testing"

func TestOpen_invalid(t *testing.T) {
	for _, n := range []int{-1, 54} {
		if p, err := Open(n); p != nil || err == nil {
			t.Fatalf("pin %d accepted", n)
		}
	}
}

func TestString(t *testing.T) {
	p := &Pin{pin: 4}
	if s := p.String(); s != "rpio/GPIO4" {
		t.Fatal(s)
	}
}
