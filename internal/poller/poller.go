// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package poller periodically converts and reads every temperature sensor on
// a 1-wire bus.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GermanBionicSystems/thermowire/common"
	"github.com/GermanBionicSystems/thermowire/ds18x20"
	"github.com/GermanBionicSystems/thermowire/owgpio"
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/onewire"
)

// Poller owns the bus; only one cycle runs at a time.
type Poller struct {
	cfg    Config
	bus    Bus
	logger *log.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time

	// busMu is held for a whole cycle or enumeration.
	busMu sync.Mutex
	devs  []*ds18x20.Dev
	cycle int

	// mu guards what other goroutines read. It is never held across a bus
	// operation.
	mu        sync.Mutex
	indicator Indicator
	tracked   []onewire.Address
	last      Result
}

// New creates a poller. logger may be nil.
func New(cfg Config, bus Bus, logger *log.Logger) (*Poller, error) {
	if bus == nil {
		return nil, errors.New("poller: bus required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if cfg.ResolutionBits < 9 || cfg.ResolutionBits > 12 {
		return nil, errors.Errorf("poller: invalid resolution %d", cfg.ResolutionBits)
	}
	if cfg.Retries < 0 || cfg.RescanEvery < 0 {
		return nil, errors.New("poller: retries and rescan must be >= 0")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Poller{
		cfg:    cfg,
		bus:    bus,
		logger: logger.WithPrefix("poller"),
		sleep:  sleepContext,
		now:    time.Now,
	}, nil
}

// SetIndicator sets where the outcome of every cycle is reported.
func (p *Poller) SetIndicator(i Indicator) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.indicator = i
}

// Devices returns the addresses of the tracked sensors.
func (p *Poller) Devices() []onewire.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]onewire.Address{}, p.tracked...)
}

// Last returns the result of the last completed cycle.
func (p *Poller) Last() Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Discover enumerates the bus and replaces the tracked sensors.
//
// Devices of another family are ignored. Devices found past
// Config.MaxDevices are logged and not tracked. A device that cannot be
// opened is logged and skipped.
func (p *Poller) Discover() ([]onewire.Address, error) {
	p.busMu.Lock()
	defer p.busMu.Unlock()
	return p.discover()
}

func (p *Poller) discover() ([]onewire.Address, error) {
	var addrs []onewire.Address
	if p.cfg.SingleDevice {
		a, err := p.bus.ReadROM()
		if err != nil {
			return nil, errors.Wrap(err, "read rom failed")
		}
		addrs = []onewire.Address{a}
	} else {
		s := &owgpio.SearchState{Max: p.cfg.MaxDevices}
		found, err := p.bus.Discover(s)
		if s.Dropped > 0 {
			p.logger.Warn("devices not tracked", "err", errors.Wrapf(common.ErrCapacity, "%d dropped", s.Dropped), "max", s.Max)
		}
		if err != nil {
			if len(found) == 0 {
				return nil, errors.Wrap(err, "search failed")
			}
			p.logger.Warn("search interrupted", "found", len(found), "err", err)
		}
		addrs = found
	}

	var devs []*ds18x20.Dev
	var tracked []onewire.Address
	for _, a := range addrs {
		if !ds18x20.FamilyOf(a).Supported() {
			p.logger.Debug("ignoring device", "addr", fmt.Sprintf("%#016x", uint64(a)))
			continue
		}
		d, err := p.open(a)
		if err != nil {
			p.logger.Warn("cannot open sensor", "addr", fmt.Sprintf("%#016x", uint64(a)), "err", err)
			continue
		}
		devs = append(devs, d)
		tracked = append(tracked, a)
	}
	p.devs = devs
	p.mu.Lock()
	p.tracked = append([]onewire.Address{}, tracked...)
	p.mu.Unlock()
	p.logger.Info("bus enumerated", "found", len(addrs), "tracked", len(devs))
	return tracked, nil
}

func (p *Poller) open(a onewire.Address) (*ds18x20.Dev, error) {
	var err error
	for i := 0; i <= p.cfg.Retries; i++ {
		var d *ds18x20.Dev
		if d, err = ds18x20.New(p.bus, a, p.cfg.ResolutionBits); err == nil {
			return d, nil
		}
		if !errors.Is(err, common.ErrChecksum) {
			break
		}
	}
	return nil, err
}

// PollOnce performs exactly one poll cycle: every sensor converts at once,
// then each is read in turn.
func (p *Poller) PollOnce(ctx context.Context) Result {
	p.busMu.Lock()
	defer p.busMu.Unlock()
	p.cycle++
	res := Result{Cycle: p.cycle, At: p.now()}
	res.Err = p.pollOnce(ctx, &res)
	if err := res.FirstError(); err != nil {
		p.logger.Error("cycle failed", "cycle", res.Cycle, "readings", len(res.Readings), "err", err)
	} else {
		p.logger.Debug("cycle done", "cycle", res.Cycle, "readings", len(res.Readings))
	}
	p.mu.Lock()
	p.last = res
	ind := p.indicator
	p.mu.Unlock()
	if ind != nil {
		if err := ind.Indicate(res.FirstError()); err != nil {
			p.logger.Warn("indicator failed", "err", err)
		}
	}
	return res
}

func (p *Poller) pollOnce(ctx context.Context, res *Result) error {
	rescan := p.cfg.RescanEvery > 0 && (p.cycle-1)%p.cfg.RescanEvery == 0
	if len(p.devs) == 0 || rescan {
		if _, err := p.discover(); err != nil {
			return err
		}
		if len(p.devs) == 0 {
			return errors.Wrap(common.ErrNoDevice, "no sensor on the bus")
		}
	}

	bits := 9
	for _, d := range p.devs {
		if r := d.Resolution(); r > bits {
			bits = r
		}
	}
	if err := ds18x20.StartAll(p.bus); err != nil {
		return errors.Wrap(err, "convert failed")
	}
	if err := p.sleep(ctx, ds18x20.ConversionTime(bits)); err != nil {
		return err
	}

	for _, d := range p.devs {
		r, err := p.read(d)
		if err != nil {
			res.Failures = append(res.Failures, Failure{Addr: d.Addr(), Err: err})
			p.logger.Warn("read failed", "sensor", d.String(), "err", err)
			if !common.Recoverable(err) {
				// The pin is gone; every later read would fail the same way.
				return errors.Wrap(err, "bus failed")
			}
			continue
		}
		res.Readings = append(res.Readings, r)
	}
	return nil
}

// read retries checksum failures only; nothing stale is ever returned.
func (p *Poller) read(d *ds18x20.Dev) (ds18x20.Reading, error) {
	var err error
	for i := 0; i <= p.cfg.Retries; i++ {
		var r ds18x20.Reading
		if r, err = d.LastReading(); err == nil {
			return r, nil
		}
		if !errors.Is(err, common.ErrChecksum) {
			break
		}
		p.logger.Debug("retrying", "sensor", d.String(), "attempt", i+1, "err", err)
	}
	return ds18x20.Reading{}, err
}

// Run polls immediately then on every tick, and emits each Result on out.
// It returns when ctx is done.
func (p *Poller) Run(ctx context.Context, out chan<- Result) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		res := p.PollOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case out <- res:
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
