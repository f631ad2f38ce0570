package units

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"caseport/internal/errs"
)

func millis(t *testing.T, s Scalar) uint32 {
	t.Helper()
	d, err := DecodeDuration(s)
	require.NoError(t, err, "decode %s", s)
	ms, err := d.Millis()
	require.NoError(t, err)
	return ms
}

func TestDecodeDuration(t *testing.T) {
	t.Run("Should read explicit milliseconds exactly", func(t *testing.T) {
		for _, n := range []int{100, 250, 1000, 9999, 10000} {
			assert.Equal(t, uint32(n), millis(t, String(fmt.Sprintf("%dms", n))))
		}
	})

	t.Run("Should convert explicit seconds with rounding", func(t *testing.T) {
		for _, n := range []float64{0.1, 0.3, 0.1234, 1, 2.5, 9.5} {
			want := uint32(math.Round(n * 1000))
			assert.Equal(t, want, millis(t, String(fmt.Sprintf("%gs", n))), "input %gs", n)
		}
	})

	t.Run("Should resolve bare numbers by magnitude", func(t *testing.T) {
		assert.Equal(t, uint32(2000), millis(t, Int(2)))
		assert.Equal(t, uint32(500), millis(t, Float(0.5)))
		assert.Equal(t, uint32(1500), millis(t, Int(1500)))
		assert.Equal(t, uint32(100), millis(t, Float(100)))
	})

	t.Run("Should agree between bare numbers and unitless strings", func(t *testing.T) {
		fromInt := millis(t, Int(100))
		fromFloat := millis(t, Float(100))
		fromString := millis(t, String("100"))
		assert.Equal(t, fromInt, fromString)
		assert.Equal(t, fromFloat, fromString)
		assert.Equal(t, millis(t, Float(2.5)), millis(t, String("2.5")))
	})

	t.Run("Should reject values outside both bands", func(t *testing.T) {
		for _, s := range []Scalar{Float(0.05), Int(20000), Int(10), Int(50), Int(0), Int(-1), String("0.05"), String("10000")} {
			_, err := DecodeDuration(s)
			require.Error(t, err, "input %s", s)
			assert.True(t, errs.Is(err, errs.InvalidScalarValue), "input %s: %v", s, err)
		}
	})

	t.Run("Should reject unknown units", func(t *testing.T) {
		for _, in := range []string{"100xx", "1min", "10ms&", "2S"} {
			_, err := DecodeDuration(String(in))
			assert.True(t, errs.Is(err, errs.UnrecognizedUnit), "input %q: %v", in, err)
		}
	})

	t.Run("Should reject malformed prefixes", func(t *testing.T) {
		for _, in := range []string{"ms", "", "1.2.3s", ".s", "#10ms"} {
			_, err := DecodeDuration(String(in))
			assert.True(t, errs.Is(err, errs.MalformedNumericPrefix), "input %q: %v", in, err)
		}
	})

	t.Run("Should tolerate whitespace around the unit", func(t *testing.T) {
		assert.Equal(t, uint32(1500), millis(t, String(" 1500 ms ")))
	})

	t.Run("Should fail narrowing instead of truncating", func(t *testing.T) {
		d, err := DecodeDuration(String("5000000s"))
		require.NoError(t, err)
		_, err = d.Millis()
		assert.True(t, errs.Is(err, errs.NarrowingOverflow), "got %v", err)

		_, err = DecodeDuration(String("99999999999999999999s"))
		assert.True(t, errs.Is(err, errs.NarrowingOverflow), "got %v", err)
	})
}

func TestDecodeMemorySize(t *testing.T) {
	kib := func(t *testing.T, s Scalar) uint32 {
		t.Helper()
		m, err := DecodeMemorySize(s)
		require.NoError(t, err, "decode %s", s)
		return m.KiB
	}

	t.Run("Should resolve bare numbers by magnitude", func(t *testing.T) {
		assert.Equal(t, uint32(2_097_152), kib(t, Int(2)))
		assert.Equal(t, uint32(262_144), kib(t, String("256")))
		assert.Equal(t, uint32(10_485_760), kib(t, Int(10)))
		assert.Equal(t, uint32(10_485_760), kib(t, Int(10240)))
		assert.Equal(t, uint32(65_536), kib(t, Float(64)))
		assert.Equal(t, uint32(1_572_864), kib(t, Float(1.5)))
	})

	t.Run("Should honor explicit units case-insensitively", func(t *testing.T) {
		assert.Equal(t, uint32(262_144), kib(t, String("256mib")))
		assert.Equal(t, uint32(262_144), kib(t, String("256MB")))
		assert.Equal(t, uint32(3_145_728), kib(t, String("3gb")))
		assert.Equal(t, uint32(3_145_728), kib(t, String("3GiB")))
		assert.Equal(t, uint32(512), kib(t, String("512KiB")))
		assert.Equal(t, uint32(32_768), kib(t, String("32mb")))
	})

	t.Run("Should reject values outside both bands", func(t *testing.T) {
		for _, s := range []Scalar{Int(0), Int(11), Int(63), Int(10241), Float(0.5), String("32")} {
			_, err := DecodeMemorySize(s)
			assert.True(t, errs.Is(err, errs.InvalidScalarValue), "input %s: %v", s, err)
		}
	})

	t.Run("Should reject fractional kibibytes", func(t *testing.T) {
		_, err := DecodeMemorySize(String("0.3kb"))
		assert.True(t, errs.Is(err, errs.InvalidScalarValue), "got %v", err)
	})

	t.Run("Should reject unknown units", func(t *testing.T) {
		_, err := DecodeMemorySize(String("100xx"))
		assert.True(t, errs.Is(err, errs.UnrecognizedUnit), "got %v", err)
	})

	t.Run("Should fail narrowing past 32 bits", func(t *testing.T) {
		_, err := DecodeMemorySize(String("8192gib"))
		assert.True(t, errs.Is(err, errs.NarrowingOverflow), "got %v", err)
	})
}

func TestYAMLDecoding(t *testing.T) {
	var doc struct {
		Time   Duration   `yaml:"time"`
		Memory MemorySize `yaml:"memory"`
	}

	t.Run("Should dispatch on the node tag", func(t *testing.T) {
		require.NoError(t, yaml.Unmarshal([]byte("time: 2\nmemory: 256\n"), &doc))
		assert.Equal(t, 2*time.Second, doc.Time.Duration)
		assert.Equal(t, uint32(262_144), doc.Memory.KiB)

		require.NoError(t, yaml.Unmarshal([]byte("time: \"1500\"\nmemory: 1.5\n"), &doc))
		assert.Equal(t, 1500*time.Millisecond, doc.Time.Duration)
		assert.Equal(t, uint32(1_572_864), doc.Memory.KiB)
	})

	t.Run("Should report the failing line and kind", func(t *testing.T) {
		err := yaml.Unmarshal([]byte("time: 1s\nmemory: 100xx\n"), &doc)
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.UnrecognizedUnit))
		assert.Contains(t, err.Error(), "line 2")
	})

	t.Run("Should reject non-scalar nodes", func(t *testing.T) {
		err := yaml.Unmarshal([]byte("time: [1, 2]\n"), &doc)
		assert.True(t, errs.Is(err, errs.InvalidScalarValue), "got %v", err)
	})
}

func TestJSONDecoding(t *testing.T) {
	var doc struct {
		Time   Duration   `json:"time"`
		Memory MemorySize `json:"memory"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"time": 0.5, "memory": "1gib"}`), &doc))
	assert.Equal(t, 500*time.Millisecond, doc.Time.Duration)
	assert.Equal(t, uint32(1<<20), doc.Memory.KiB)

	err := json.Unmarshal([]byte(`{"time": 20000}`), &doc)
	assert.True(t, errs.Is(err, errs.InvalidScalarValue), "got %v", err)
}
