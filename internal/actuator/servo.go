package actuator

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// Hobby servo PWM timing: 50 Hz frame with a 0.5ms-2.5ms pulse covering the
// 0-180 degree range. The PWM clock runs at 10us per duty tick.
const (
	pwmCycleTicks = 2000
	pwmClockHz    = 50 * pwmCycleTicks
	pulseMinTicks = 50
	pulseMaxTicks = 250
)

// ServoConfig for the GPIO servo driver. Pins are BCM numbers and must be
// PWM-capable (18 and 13 cover both hardware PWM channels on a Pi).
type ServoConfig struct {
	PanPin  int
	TiltPin int
}

// ServoDriver drives two hobby servos through the Raspberry Pi hardware PWM
// channels. Requires /dev/gpiomem access or root.
type ServoDriver struct {
	pan  rpio.Pin
	tilt rpio.Pin
}

// NewServoDriver maps GPIO memory and configures both pins for PWM output.
func NewServoDriver(cfg ServoConfig) (*ServoDriver, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio: %w (are you running on a Raspberry Pi?)", err)
	}

	d := &ServoDriver{
		pan:  rpio.Pin(cfg.PanPin),
		tilt: rpio.Pin(cfg.TiltPin),
	}
	for _, pin := range []rpio.Pin{d.pan, d.tilt} {
		pin.Mode(rpio.Pwm)
		pin.Freq(pwmClockHz)
	}
	return d, nil
}

// SetAngle positions one axis. The write is a register update, effectively
// instantaneous; the servo slews to the pulse width on its own.
func (d *ServoDriver) SetAngle(axis Axis, degrees int) error {
	if degrees < 0 || degrees > 180 {
		return fmt.Errorf("angle %d out of servo range for %s", degrees, axis)
	}
	duty := pulseMinTicks + degrees*(pulseMaxTicks-pulseMinTicks)/180

	switch axis {
	case AxisPan:
		d.pan.DutyCycle(uint32(duty), pwmCycleTicks)
	case AxisTilt:
		d.tilt.DutyCycle(uint32(duty), pwmCycleTicks)
	default:
		return fmt.Errorf("unknown axis %s", axis)
	}
	return nil
}

// Close releases the GPIO memory mapping.
func (d *ServoDriver) Close() error {
	return rpio.Close()
}
