// Package rovercore composes the rover's real-time coordination core: a tick
// scheduler deriving phase-locked control rates from one hardware alarm, and
// the behavior state machine arbitrating between remote commands and onboard
// safety reflexes.
//
// A Rover owns both. Its slow-rate loop runs housekeeping: it exports the
// scheduler counters, logs a health line once per second and warns when
// work was dropped or a loop overran its budget. When scheduling is lost the
// Rover drives the state machine into FAULT, de-energizes the actuators,
// invokes the halt handler and returns the cause from Run.
//
// Example:
//
//	timer := hal.NewSimTimer(1_000_000)
//	fsm := core.NewMachine(core.WithActuators(drivers))
//	rover, err := rovercore.New(timer, fsm, rovercore.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	rover.EnqueueWork(frame)
//	fsm.PostObstacle()
//	err = rover.Run(ctx)
package rovercore
