// SPDX-License-Identifier: MIT
//
// Package config validates the scheduler's construction-time inputs before
// a Scheduler is built: the CFL constraint, per-lane cell counts, and mode
// thresholds. Every rejection here is a configuration error — fatal at
// construction, never a runtime fallback — matching the project's
// error-taxonomy convention of failing loudly before any tick runs rather
// than silently clamping a bad parameter.
package config

import (
	"errors"
	"fmt"

	"github.com/jamfree-go/hybridtraffic/fsm"
	"github.com/jamfree-go/hybridtraffic/geometry"
	"github.com/jamfree-go/hybridtraffic/macro"
)

// Sentinel configuration errors beyond the ones fsm/geometry/macro already
// define for their own narrower checks.
var (
	ErrNonPositiveDT = errors.New("config: dt must be positive")
	ErrTooFewCells   = errors.New("config: cells-per-lane must be >= 2")
	ErrCFLViolation  = errors.New("config: dt/cell_length exceeds the CFL limit for this fundamental diagram")
	ErrNoWorkers     = errors.New("config: worker count must be >= 1")
)

// Validate checks the scheduler's full construction-time configuration:
// dt, cells-per-lane, the mode-hysteresis thresholds, the fundamental
// diagram's implied CFL bound against every lane's resulting cell length,
// and the worker pool size. Lane-level checks (empty id, zero length,
// dangling adjacency) are already enforced by geometry.NewNetwork and are
// not repeated here.
func Validate(dt float64, cellsPerLane int, workerCount int, th fsm.Thresholds, fd macro.FundamentalDiagram, lanes []*geometry.Lane) error {
	if dt <= 0 {
		return ErrNonPositiveDT
	}
	if cellsPerLane < 2 {
		return ErrTooFewCells
	}
	if workerCount < 1 {
		return ErrNoWorkers
	}
	if err := th.Validate(); err != nil {
		return err
	}

	for _, lane := range lanes {
		dx := lane.Length() / float64(cellsPerLane)
		if !macro.CFLSatisfied(dt, dx, fd) {
			return fmt.Errorf("%w: lane %s, dt=%g dx=%g max_speed=%g", ErrCFLViolation, lane.ID(), dt, dx, fd.MaxCharacteristicSpeed())
		}
	}

	return nil
}
