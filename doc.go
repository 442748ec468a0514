// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package thermowire reads DS18x20 temperature sensors on a 1-wire bus
// bit-banged on a single GPIO.
//
// The bus master is in owgpio, the sensor driver in ds18x20 and the errors
// shared by both in common. The thermowire command in cmd/thermowire polls
// the sensors and publishes the readings.
package thermowire
