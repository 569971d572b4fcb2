package codec_test

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/aretw0/exposer/pkg/codec"
	"github.com/aretw0/exposer/pkg/field"
	"github.com/aretw0/exposer/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type level int

type color struct {
	R    int    `json:"r"`
	G    int    `json:"g"`
	B    int    `json:"b"`
	Name string `json:"name"`
}

type mode string

type schedule struct {
	At    time.Time     `json:"at"`
	Every time.Duration `json:"every"`
	Note  string        `json:"note"`
}

func roundTrip[T any](t *testing.T, reg *codec.Registry, v T) T {
	t.Helper()
	s, err := codec.Lookup[T](reg)
	require.NoError(t, err)

	encoded, err := s.Encode(v)
	require.NoError(t, err)

	// Push the wire value through JSON to match what a transport delivers.
	raw, err := wire.JSON.Marshal(encoded)
	require.NoError(t, err)
	back, err := wire.JSON.Unmarshal(raw)
	require.NoError(t, err)

	got, err := s.Decode(back)
	require.NoError(t, err)
	return got
}

func TestBuiltins_RoundTrip(t *testing.T) {
	reg := codec.Default()

	assert.Equal(t, true, roundTrip(t, reg, true))
	assert.Equal(t, "hello", roundTrip(t, reg, "hello"))
	assert.Equal(t, -42, roundTrip(t, reg, -42))
	assert.Equal(t, int8(-128), roundTrip(t, reg, int8(-128)))
	assert.Equal(t, int64(1<<40), roundTrip(t, reg, int64(1<<40)))
	assert.Equal(t, uint16(65535), roundTrip(t, reg, uint16(65535)))
	assert.Equal(t, float32(1.5), roundTrip(t, reg, float32(1.5)))
	assert.Equal(t, 3.25, roundTrip(t, reg, 3.25))
	assert.Equal(t, 90*time.Second, roundTrip(t, reg, 90*time.Second))
	assert.Equal(t, []byte("raw"), roundTrip(t, reg, []byte("raw")))
	assert.Equal(t, []string{"a", "b"}, roundTrip(t, reg, []string{"a", "b"}))
	assert.Equal(t, []int{1, 2, 3}, roundTrip(t, reg, []int{1, 2, 3}))
	assert.Equal(t, []float64{0.5}, roundTrip(t, reg, []float64{0.5}))
	assert.Equal(t, map[string]any{"k": "v"}, roundTrip(t, reg, map[string]any{"k": "v"}))

	ts := time.Date(2024, 5, 1, 12, 30, 0, 500, time.UTC)
	assert.True(t, ts.Equal(roundTrip(t, reg, ts)))
}

func TestBuiltins_RoundTripBoundaries(t *testing.T) {
	reg := codec.Default()

	assert.Equal(t, int64(math.MaxInt64), roundTrip(t, reg, int64(math.MaxInt64)))
	assert.Equal(t, int64(math.MinInt64), roundTrip(t, reg, int64(math.MinInt64)))
	assert.Equal(t, uint64(math.MaxUint64), roundTrip(t, reg, uint64(math.MaxUint64)))
	assert.Equal(t, uint(math.MaxUint), roundTrip(t, reg, uint(math.MaxUint)))
	assert.Equal(t, float32(math.SmallestNonzeroFloat32), roundTrip(t, reg, float32(math.SmallestNonzeroFloat32)))
	assert.Equal(t, float32(math.MaxFloat32), roundTrip(t, reg, float32(math.MaxFloat32)))
	assert.Equal(t, math.MaxFloat64, roundTrip(t, reg, math.MaxFloat64))
	assert.Equal(t, []string{}, roundTrip(t, reg, []string{}))
	assert.Equal(t, []int{}, roundTrip(t, reg, []int{}))
	assert.Equal(t, "", roundTrip(t, reg, ""))
}

func TestComposed_RoundTrip(t *testing.T) {
	reg := codec.Default()
	codec.Register(reg, codec.Int[level]())
	codec.Register(reg, codec.Struct[color]())
	codec.Register(reg, codec.Enum[mode]("auto", "manual"))
	codec.Register(reg, codec.Struct[schedule]())

	assert.Equal(t, level(3), roundTrip(t, reg, level(3)))
	assert.Equal(t, color{R: 255, G: 10, B: 0, Name: "red"}, roundTrip(t, reg, color{R: 255, G: 10, B: 0, Name: "red"}))
	assert.Equal(t, mode("manual"), roundTrip(t, reg, mode("manual")))

	sched := schedule{At: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), Every: time.Minute, Note: "hourly"}
	got := roundTrip(t, reg, sched)
	assert.True(t, sched.At.Equal(got.At), "got %v", got.At)
	assert.Equal(t, sched.Every, got.Every)
	assert.Equal(t, sched.Note, got.Note)
}

func TestStruct_EncodesTimeAsText(t *testing.T) {
	s := codec.Struct[schedule]()

	encoded, err := s.Encode(schedule{At: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), Every: 90 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"at":    "2024-01-02T03:04:05Z",
		"every": "1m30s",
		"note":  "",
	}, encoded)
}

func TestLookup_ExactTypeOnly(t *testing.T) {
	reg := codec.Default()

	_, err := reg.Lookup(reflect.TypeFor[level]())
	require.Error(t, err)
	assert.ErrorIs(t, err, codec.ErrUnsupportedType)

	var ute *codec.UnsupportedTypeError
	require.True(t, errors.As(err, &ute))
	assert.Equal(t, reflect.TypeFor[level](), ute.Type)
}

func TestDecode_Failures(t *testing.T) {
	reg := codec.Default()
	cases := []struct {
		name string
		typ  reflect.Type
		wire any
	}{
		{"int from text", reflect.TypeFor[int](), "notanumber"},
		{"int64 above range", reflect.TypeFor[int64](), json.Number("9223372036854775808")},
		{"int64 far above range", reflect.TypeFor[int64](), json.Number("99999999999999999999")},
		{"int64 below range", reflect.TypeFor[int64](), json.Number("-9223372036854775809")},
		{"int64 from huge float", reflect.TypeFor[int64](), 1e19},
		{"int64 from huge exponent", reflect.TypeFor[int64](), json.Number("1e400")},
		{"uint64 above range", reflect.TypeFor[uint64](), json.Number("18446744073709551616")},
		{"uint64 from huge float", reflect.TypeFor[uint64](), 2e19},
		{"uint64 negative number", reflect.TypeFor[uint64](), json.Number("-1")},
		{"float from NaN", reflect.TypeFor[float64](), "NaN"},
		{"float from Inf", reflect.TypeFor[float64](), "Inf"},
		{"float from negative Inf", reflect.TypeFor[float64](), "-Inf"},
		{"float32 from NaN", reflect.TypeFor[float32](), "nan"},
		{"float from huge number", reflect.TypeFor[float64](), json.Number("1e400")},
		{"float32 overflow", reflect.TypeFor[float32](), json.Number("1e39")},
		{"int from fraction", reflect.TypeFor[int](), 5.5},
		{"int8 overflow", reflect.TypeFor[int8](), 300.0},
		{"uint negative", reflect.TypeFor[uint](), -1.0},
		{"int from bool", reflect.TypeFor[int](), true},
		{"int from object", reflect.TypeFor[int](), map[string]any{}},
		{"bool from text", reflect.TypeFor[bool](), "maybe"},
		{"string from array", reflect.TypeFor[string](), []any{"a"}},
		{"duration from text", reflect.TypeFor[time.Duration](), "soon"},
		{"time from number", reflect.TypeFor[time.Time](), 12.0},
		{"slice element", reflect.TypeFor[[]int](), []any{1.0, "x"}},
		{"slice from scalar", reflect.TypeFor[[]string](), "a"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := reg.Decode(tc.typ, tc.wire)
			require.Error(t, err)
			assert.ErrorIs(t, err, codec.ErrCodec)

			var ce *codec.CodecError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, codec.OpDecode, ce.Op)
			assert.Equal(t, tc.typ, ce.Type)
		})
	}
}

func TestDecode_Coercion(t *testing.T) {
	reg := codec.Default()

	v, err := reg.Decode(reflect.TypeFor[int](), json.Number("5"))
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	v, err = reg.Decode(reflect.TypeFor[int](), 5.0)
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	v, err = reg.Decode(reflect.TypeFor[string](), json.Number("5.10"))
	require.NoError(t, err)
	assert.Equal(t, "5.10", v, "json.Number keeps its literal text")

	v, err = reg.Decode(reflect.TypeFor[bool](), "true")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = reg.Decode(reflect.TypeFor[time.Duration](), 1000.0)
	require.NoError(t, err)
	assert.Equal(t, time.Microsecond, v)

	v, err = reg.Decode(reflect.TypeFor[uint64](), json.Number("18446744073709551615"))
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), v)

	v, err = reg.Decode(reflect.TypeFor[uint64](), json.Number("1e3"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), v)

	v, err = reg.Decode(reflect.TypeFor[int64](), json.Number("-9223372036854775808"))
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), v)
}

func TestEnum_Rejects(t *testing.T) {
	reg := codec.NewRegistry()
	codec.Register(reg, codec.Enum[mode]("auto", "manual"))

	_, err := reg.Decode(reflect.TypeFor[mode](), "turbo")
	assert.ErrorIs(t, err, codec.ErrCodec)
}

func TestRegistry_EncodeField(t *testing.T) {
	reg := codec.Default()

	encoded, err := reg.Encode(field.New(12))
	require.NoError(t, err)
	assert.Equal(t, 12, encoded)

	_, err = reg.Encode(field.New(level(1)))
	assert.ErrorIs(t, err, codec.ErrUnsupportedType)
}

func TestRegistry_Freeze(t *testing.T) {
	reg := codec.Default()
	reg.Freeze()
	assert.True(t, reg.Frozen())

	_, err := reg.Lookup(reflect.TypeFor[int]())
	assert.NoError(t, err)

	assert.Panics(t, func() {
		codec.Register(reg, codec.Int[level]())
	})
}

func TestRegistry_Types(t *testing.T) {
	reg := codec.NewRegistry()
	codec.Register(reg, codec.String())
	codec.Register(reg, codec.Bool())

	assert.Equal(t, []reflect.Type{reflect.TypeFor[bool](), reflect.TypeFor[string]()}, reg.Types())
}
