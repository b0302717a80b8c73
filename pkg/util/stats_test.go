package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanStdDev(t *testing.T) {
	mean, sd := MeanStdDev(nil)
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 0.0, sd)

	mean, sd = MeanStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, mean, 1e-9)
	assert.InDelta(t, 2.0, sd, 1e-9)

	mean, sd = MeanStdDev([]float64{10})
	assert.Equal(t, 10.0, mean)
	assert.Equal(t, 0.0, sd)
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.5))
	assert.Equal(t, 1.0, Clamp01(1.5))
	assert.Equal(t, 0.42, Clamp01(0.42))
}
