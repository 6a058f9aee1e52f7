package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tetrahub/tetralog/internal/config"
)

func validConfig() config.Config {
	return config.Config{
		LogLevel: config.LogLevelInfo,
		Collector: config.CollectorConfig{
			Bind: "127.0.0.1",
			Port: 4321,
		},
		Control: config.ControlConfig{
			Bind: "127.0.0.1",
			Port: 7655,
		},
		Media: config.MediaConfig{
			Feeders: []config.FeederConfig{
				{Stream: "tac1", IP: "127.0.0.1", Port: 9000, Kind: config.FeederMono},
				{Stream: "duplex1", IP: "127.0.0.1", Port: 9001, Kind: config.FeederStereo},
			},
			CallInactivityPeriod: 300 * time.Second,
			MaintenanceFrequency: 60 * time.Second,
		},
	}
}

func TestValidateOK(t *testing.T) {
	c := validConfig()
	assert.NoError(t, c.Validate())
}

func TestValidateBadLogLevel(t *testing.T) {
	c := validConfig()
	c.LogLevel = "chatty"
	assert.ErrorIs(t, c.Validate(), config.ErrInvalidLogLevel)
}

func TestValidateNoFeeders(t *testing.T) {
	c := validConfig()
	c.Media.Feeders = nil
	assert.ErrorIs(t, c.Validate(), config.ErrNoFeeders)
}

func TestValidateBadFeederKind(t *testing.T) {
	c := validConfig()
	c.Media.Feeders[0].Kind = "X"
	assert.ErrorIs(t, c.Validate(), config.ErrInvalidFeederKind)
}

func TestValidateDuplicateFeederAddress(t *testing.T) {
	c := validConfig()
	c.Media.Feeders[1].IP = c.Media.Feeders[0].IP
	c.Media.Feeders[1].Port = c.Media.Feeders[0].Port
	assert.ErrorIs(t, c.Validate(), config.ErrDuplicateFeederAddress)
}

func TestValidateBadCollectorPort(t *testing.T) {
	c := validConfig()
	c.Collector.Port = 0
	assert.ErrorIs(t, c.Validate(), config.ErrInvalidCollectorPort)
}
