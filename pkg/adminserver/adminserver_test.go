package adminserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zonewatch/zonereport/pkg/config"
)

// TestStopBeforeStart tests that stopping a never-started server is a no-op
func TestStopBeforeStart(t *testing.T) {
	s := NewServer(nil, nil, nil, nil)
	assert.NoError(t, s.Stop())
}

// TestStartStop tests the background start and the Stop shutdown path
func TestStartStop(t *testing.T) {
	config.CFG.Metrics.Port = "0"

	s := NewServer(nil, nil, nil, nil)
	s.Start()
	time.Sleep(50 * time.Millisecond)

	assert.NoError(t, s.Stop())
}
