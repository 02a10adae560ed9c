package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSweepSchedule(t *testing.T) {
	assert.Equal(t, "@every 1h0m0s", sweepSchedule(time.Hour))
	assert.Equal(t, "@every 15m0s", sweepSchedule(15*time.Minute))
}
