// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sink stores poll results in InfluxDB.
package sink

import (
	"context"
	"time"

	"github.com/GermanBionicSystems/thermowire/internal/config"
	"github.com/GermanBionicSystems/thermowire/internal/poller"
	"github.com/charmbracelet/log"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"
)

// PointWriter is the part of api.WriteAPIBlocking used by Influx.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Influx writes one point per reading, tagged with the sensor ID and family.
type Influx struct {
	client      influxdb2.Client
	w           PointWriter
	measurement string
	logger      *log.Logger
}

// NewInflux connects to the server described by cfg.
func NewInflux(cfg *config.InfluxConfig, logger *log.Logger) *Influx {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	s := New(client.WriteAPIBlocking(cfg.Org, cfg.Bucket), cfg.Measurement, logger)
	s.client = client
	return s
}

// New returns a sink writing to w. logger may be nil.
func New(w PointWriter, measurement string, logger *log.Logger) *Influx {
	if logger == nil {
		logger = log.Default()
	}
	return &Influx{w: w, measurement: measurement, logger: logger.WithPrefix("influx")}
}

// Points converts the readings of res. Failed devices produce no point.
func (s *Influx) Points(res *poller.Result) []*write.Point {
	points := make([]*write.Point, 0, len(res.Readings))
	for i := range res.Readings {
		r := &res.Readings[i]
		points = append(points, influxdb2.NewPoint(
			s.measurement,
			map[string]string{
				"sensor": r.ID(),
				"family": r.Family.String(),
			},
			map[string]interface{}{
				"temperature": r.Celsius,
				"raw":         int(r.Raw.Temperature),
			},
			res.At,
		))
	}
	return points
}

// Write stores the readings of res.
func (s *Influx) Write(ctx context.Context, res *poller.Result) error {
	points := s.Points(res)
	if len(points) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.w.WritePoint(ctx, points...); err != nil {
		return errors.Wrapf(err, "failed to write %d points", len(points))
	}
	s.logger.Debug("points written", "cycle", res.Cycle, "points", len(points))
	return nil
}

// Close releases the client connections.
func (s *Influx) Close() {
	if s.client != nil {
		s.client.Close()
	}
}
