package core

// GPIOPin is a board pin number
type GPIOPin uint32

// GPIODriver is the digital input side of the board's GPIO block. The
// device only reads pins: the button is sampled from the main loop, never
// through an interrupt.
type GPIODriver interface {
	// ConfigureInputPullUp enables the internal pull-up (active-low button)
	ConfigureInputPullUp(pin GPIOPin) error

	// ConfigureInputPullDown enables the internal pull-down (active-high button)
	ConfigureInputPullDown(pin GPIOPin) error

	// ReadPin reads the pin; a read failure reports the idle level
	ReadPin(pin GPIOPin) bool
}
