package demo

import (
	"testing"

	"github.com/aretw0/exposer/pkg/snapshot"
	"github.com/aretw0/exposer/pkg/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevice_Synthesizes(t *testing.T) {
	routes, err := synth.Synthesize("device", NewDevice(), Registry())
	require.NoError(t, err)

	var paths []string
	for _, ep := range routes.Fields {
		paths = append(paths, ep.Path)
	}
	assert.Equal(t, []string{
		"count", "name", "tags", "uplink",
		"thermostat/target", "thermostat/reading", "thermostat/mode", "thermostat/hold",
	}, paths)
}

func TestDevice_Snapshot(t *testing.T) {
	snap, err := snapshot.Serialize(NewDevice(), Registry())
	require.NoError(t, err)

	assert.Equal(t, "EXP-0001", snap["serial"])
	assert.Equal(t, map[string]any{"host": "localhost", "port": 1883}, snap["uplink"])
	thermo := snap["thermostat"].(map[string]any)
	assert.Equal(t, "heat", thermo["mode"])
	assert.Equal(t, "30m0s", thermo["hold"])
}

func TestStep(t *testing.T) {
	d := NewDevice()
	Step(d.Thermostat)
	assert.Equal(t, 18.5, d.Thermostat.Reading.Get())

	d.Thermostat.Reading.Set(20.8)
	Step(d.Thermostat)
	assert.Equal(t, 21.0, d.Thermostat.Reading.Get())

	d.Thermostat.Mode.Set(ModeCool)
	d.Thermostat.Target.Set(20)
	Step(d.Thermostat)
	assert.Equal(t, 20.5, d.Thermostat.Reading.Get())

	d.Thermostat.Mode.Set(ModeOff)
	Step(d.Thermostat)
	assert.Equal(t, 20.5, d.Thermostat.Reading.Get())
}
