package drive

import "sync"

// Fake is an in-memory stand-in for Client satisfying Interface, used by
// axis and mount package tests so they can exercise control-loop logic
// without a serial link. Fake does not simulate acceleration ramps; a
// MoveTo or Rotate call takes effect immediately, and PositionReached is
// true whenever the actual and target registers agree.
type Fake struct {
	mu sync.Mutex

	axisParams   map[int32]int32
	globalParams map[int32]int32

	analogInputs map[int]int32

	// FailNext, if positive, causes the next N transactions to return
	// FailErr instead of succeeding, then decrements to zero.
	FailNext int
	FailErr  error
}

// NewFake returns a Fake with zeroed registers and MaxVelocity set to a
// generous default so tests don't need to configure it unless they care.
func NewFake() *Fake {
	return &Fake{
		axisParams: map[int32]int32{
			AxisParamMaxVelocity: 51200,
		},
		globalParams: map[int32]int32{},
		analogInputs: map[int]int32{
			8: 240, // tenths of a volt, supply rail (24.0 V)
			9: 25,  // degrees Celsius, board temperature
		},
	}
}

func (f *Fake) maybeFail() error {
	if f.FailNext > 0 {
		f.FailNext--
		if f.FailErr != nil {
			return f.FailErr
		}
		return driveError{status: statusUnavailable}
	}
	return nil
}

func (f *Fake) SetAxisParameter(param, value int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.maybeFail(); err != nil {
		return err
	}
	f.axisParams[param] = value
	return nil
}

func (f *Fake) GetAxisParameter(param int32) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.maybeFail(); err != nil {
		return 0, err
	}
	return f.axisParams[param], nil
}

func (f *Fake) SetActualPosition(microsteps int32) error {
	return f.SetAxisParameter(AxisParamActualPosition, microsteps)
}

func (f *Fake) SetTargetPosition(microsteps int32) error {
	return f.SetAxisParameter(AxisParamTargetPosition, microsteps)
}

// MoveTo sets both target and actual position, modeling instantaneous
// motion completion; tests that need to observe an in-flight move should
// drive position changes directly via SetActualPosition between polls.
func (f *Fake) MoveTo(microsteps int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.maybeFail(); err != nil {
		return err
	}
	f.axisParams[AxisParamTargetPosition] = microsteps
	f.axisParams[AxisParamActualPosition] = microsteps
	return nil
}

func (f *Fake) Rotate(microstepsPerSec int32) error {
	return f.SetAxisParameter(AxisParamActualVelocity, microstepsPerSec)
}

func (f *Fake) Stop() error {
	return f.SetAxisParameter(AxisParamActualVelocity, 0)
}

func (f *Fake) GetActualPosition() (int32, error) {
	return f.GetAxisParameter(AxisParamActualPosition)
}

func (f *Fake) GetActualVelocity() (int32, error) {
	return f.GetAxisParameter(AxisParamActualVelocity)
}

func (f *Fake) PositionReached() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.maybeFail(); err != nil {
		return false, err
	}
	return f.axisParams[AxisParamTargetPosition] == f.axisParams[AxisParamActualPosition], nil
}

func (f *Fake) GetStatusFlags() (uint32, error) {
	v, err := f.GetAxisParameter(AxisParamStatusFlags)
	return uint32(v), err
}

func (f *Fake) GetErrorFlags() (uint32, error) {
	v, err := f.GetAxisParameter(AxisParamErrorFlags)
	return uint32(v), err
}

func (f *Fake) AnalogInput(channel int) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.maybeFail(); err != nil {
		return 0, err
	}
	return f.analogInputs[channel], nil
}

func (f *Fake) GetGlobalParameter(param int32, bank int) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.maybeFail(); err != nil {
		return 0, err
	}
	return f.globalParams[param], nil
}

// SetGlobalParameter lets a test seed the serial-address handshake result
// that the supervisor package reads at startup.
func (f *Fake) SetGlobalParameter(param int32, value int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.globalParams[param] = value
}

var _ Interface = (*Fake)(nil)
