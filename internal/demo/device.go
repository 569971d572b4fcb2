// Package demo holds the sample model served by `exposer serve`.
package demo

import (
	"context"
	"math"
	"time"

	"github.com/aretw0/exposer/pkg/codec"
	"github.com/aretw0/exposer/pkg/field"
)

// Mode is the operating mode of a thermostat.
type Mode string

const (
	ModeOff  Mode = "off"
	ModeHeat Mode = "heat"
	ModeCool Mode = "cool"
)

// Uplink is a struct-valued field, encoded as an object.
type Uplink struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Thermostat is nested under the device.
type Thermostat struct {
	Target  *field.Field[float64]
	Reading *field.Field[float64]
	Mode    *field.Field[Mode]
	Hold    *field.Field[time.Duration]
}

// Device is the demo model.
type Device struct {
	Count      *field.Field[int]
	Label      *field.Field[string] `json:"label"`
	Tags       *field.Field[[]string]
	Uplink     *field.Field[Uplink]
	Serial     *field.Field[string]
	Thermostat *Thermostat
}

// NewDevice returns a device with every field but Serial exposed.
func NewDevice() *Device {
	return &Device{
		Count:  field.New(0, field.Expose()),
		Label:  field.New("lamp", field.Expose("name")),
		Tags:   field.New([]string{"demo"}, field.Expose()),
		Uplink: field.New(Uplink{Host: "localhost", Port: 1883}, field.Expose()),
		Serial: field.New("EXP-0001"),
		Thermostat: &Thermostat{
			Target:  field.New(21.0, field.Expose()),
			Reading: field.New(18.0, field.Expose()),
			Mode:    field.New(ModeHeat, field.Expose()),
			Hold:    field.New(30*time.Minute, field.Expose()),
		},
	}
}

// Registry returns the built-in codecs plus the ones the demo types need.
func Registry() *codec.Registry {
	reg := codec.Default()
	codec.Register(reg, codec.Enum(ModeOff, ModeHeat, ModeCool))
	codec.Register(reg, codec.Struct[Uplink]())
	return reg
}

// Simulate moves the reading toward the target every interval while the
// thermostat is not off, until ctx ends.
func Simulate(ctx context.Context, d *Device, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			Step(d.Thermostat)
		}
	}
}

// Step advances the reading by at most half a degree.
func Step(t *Thermostat) {
	if t.Mode.Get() == ModeOff {
		return
	}
	reading, target := t.Reading.Get(), t.Target.Get()
	delta := math.Max(-0.5, math.Min(0.5, target-reading))
	if delta == 0 {
		return
	}
	t.Reading.Set(math.Round((reading+delta)*10) / 10)
}
