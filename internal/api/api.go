// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package api serves the latest readings over HTTP as JSON, and as a PNG
// frame on /frame.png.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/GermanBionicSystems/thermowire/ds18x20"
	"github.com/GermanBionicSystems/thermowire/internal/frame"
	"github.com/GermanBionicSystems/thermowire/internal/poller"
	"github.com/charmbracelet/log"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/onewire"
)

const httpTimeout = 3 * time.Second

// Size of /frame.png unless w and h are given, and the largest accepted.
const (
	frameWidth  = 128
	frameHeight = 64
	frameMax    = 1024
)

// Source is what the server reports on; *poller.Poller implements it.
type Source interface {
	Last() poller.Result
	Devices() []onewire.Address
	Discover() ([]onewire.Address, error)
}

// Server routes the HTTP API to a Source.
type Server struct {
	src    Source
	logger *log.Logger
	router *httprouter.Router
}

// Sensor is the JSON form of a reading.
type Sensor struct {
	ID      string  `json:"id"`
	Family  string  `json:"family"`
	Celsius float64 `json:"celsius"`
	Raw     int16   `json:"raw"`
}

// Failure is the JSON form of a device that could not be read.
type Failure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// Snapshot is the JSON form of a poll result.
type Snapshot struct {
	Cycle    int       `json:"cycle"`
	At       time.Time `json:"at"`
	Sensors  []Sensor  `json:"sensors"`
	Failures []Failure `json:"failures,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// New returns a server on src. logger may be nil.
func New(src Source, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{src: src, logger: logger.WithPrefix("api"), router: httprouter.New()}
	s.router.GET("/readings", s.handleReadings)
	s.router.GET("/readings/:id", s.handleReading)
	s.router.GET("/devices", s.handleDevices)
	s.router.GET("/frame.png", s.handleFrame)
	s.router.POST("/scan", s.handleScan)
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       httpTimeout,
		ReadHeaderTimeout: httpTimeout,
		WriteTimeout:      httpTimeout,
		IdleTimeout:       2 * httpTimeout,
	}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	s.logger.Info("listening", "addr", addr)
	select {
	case err := <-errc:
		return errors.Wrap(err, "http server failed")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// NewSnapshot converts a poll result.
func NewSnapshot(res *poller.Result) Snapshot {
	snap := Snapshot{Cycle: res.Cycle, At: res.At, Sensors: []Sensor{}}
	for i := range res.Readings {
		r := &res.Readings[i]
		snap.Sensors = append(snap.Sensors, Sensor{
			ID:      r.ID(),
			Family:  r.Family.String(),
			Celsius: r.Celsius,
			Raw:     r.Raw.Temperature,
		})
	}
	for _, f := range res.Failures {
		snap.Failures = append(snap.Failures, Failure{ID: ds18x20.ID(f.Addr), Error: f.Err.Error()})
	}
	if res.Err != nil {
		snap.Error = res.Err.Error()
	}
	return snap
}

func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	res := s.src.Last()
	s.reply(w, NewSnapshot(&res))
}

func (s *Server) handleReading(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	res := s.src.Last()
	id := p.ByName("id")
	for _, sensor := range NewSnapshot(&res).Sensors {
		if sensor.ID == id {
			s.reply(w, sensor)
			return
		}
	}
	http.Error(w, "sensor not found", http.StatusNotFound)
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.reply(w, ids(s.src.Devices()))
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	addrs, err := s.src.Discover()
	if err != nil {
		s.logger.Warn("scan failed", "err", err)
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.reply(w, ids(addrs))
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	width, ok1 := dimension(r.URL.Query().Get("w"), frameWidth)
	height, ok2 := dimension(r.URL.Query().Get("h"), frameHeight)
	if !ok1 || !ok2 {
		http.Error(w, "invalid frame size", http.StatusBadRequest)
		return
	}
	res := s.src.Last()
	w.Header().Set("Content-Type", "image/png")
	if err := frame.Encode(w, &res, width, height); err != nil {
		s.logger.Warn("frame failed", "err", err)
	}
}

// dimension parses a frame size in 1..frameMax, def when v is empty.
func dimension(v string, def int) (int, bool) {
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	return n, err == nil && n > 0 && n <= frameMax
}

func (s *Server) reply(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode reply", "err", err)
	}
}

func ids(addrs []onewire.Address) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, ds18x20.ID(a))
	}
	return out
}
