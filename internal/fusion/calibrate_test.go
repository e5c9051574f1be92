package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrisense/sensor-fusion-service/internal/domain"
)

func TestCalibrate(t *testing.T) {
	e := NewEngine("field-test",
		map[string]domain.Calibration{
			"soil_moisture": {Slope: 0.95, Offset: 2.5},
			"temperature":   {Slope: 1.0, Offset: 0.0},
		},
		nil, discardLogger())

	t.Run("registered factor applied", func(t *testing.T) {
		out := e.Calibrate([]domain.Reading{reading("soil_moisture", 40.0, 0)})

		require.Len(t, out, 1)
		assert.InDelta(t, 0.95*40.0+2.5, out[0].Value, 1e-12)
		assert.Equal(t, true, out[0].Metadata["calibrated"])
	})

	t.Run("unregistered type passes through", func(t *testing.T) {
		in := reading("humidity", 63.0, 0)
		out := e.Calibrate([]domain.Reading{in})

		require.Len(t, out, 1)
		assert.Equal(t, in.Value, out[0].Value)
		assert.NotContains(t, out[0].Metadata, "calibrated")
	})

	t.Run("identity factor is idempotent", func(t *testing.T) {
		in := []domain.Reading{reading("temperature", 21.5, 0)}

		once := e.Calibrate(in)
		twice := e.Calibrate(once)

		assert.Equal(t, 21.5, once[0].Value)
		assert.Equal(t, 21.5, twice[0].Value)
	})

	t.Run("input readings never mutated", func(t *testing.T) {
		in := reading("soil_moisture", 40.0, 0)
		e.Calibrate([]domain.Reading{in})

		assert.Equal(t, 40.0, in.Value)
		assert.NotContains(t, in.Metadata, "calibrated")
	})

	t.Run("order preserved one to one", func(t *testing.T) {
		in := []domain.Reading{
			reading("humidity", 1.0, 0),
			reading("soil_moisture", 2.0, 1),
			reading("humidity", 3.0, 2),
		}

		out := e.Calibrate(in)

		require.Len(t, out, 3)
		assert.Equal(t, 1.0, out[0].Value)
		assert.InDelta(t, 0.95*2.0+2.5, out[1].Value, 1e-12)
		assert.Equal(t, 3.0, out[2].Value)
	})
}
