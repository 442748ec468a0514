// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds18x20

// CelsiusS20 returns the extended resolution temperature of a DS18S20.
//
// tempRead is the temperature register with the 0.5°C bit truncated, that is
// whole degrees. countPerC and countRemain are scratchpad bytes 7 and 6.
// countPerC must not be 0. Datasheet p.6.
func CelsiusS20(tempRead, countPerC, countRemain int) float64 {
	return float64(tempRead) - 0.25 + float64(countPerC-countRemain)/float64(countPerC)
}

// CelsiusB20 returns the temperature of a DS18B20 style register, which has
// 4 fractional bits.
func CelsiusB20(raw int16) float64 {
	return float64(raw) * 0.0625
}
