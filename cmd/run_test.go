package cmd

import (
	"testing"

	"goldennest/config"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestConfigureLogging(t *testing.T) {
	original := log.GetLevel()
	t.Cleanup(func() {
		log.SetLevel(original)
		log.SetFormatter(&log.TextFormatter{})
	})

	ConfigureLogging(&config.Config{LogLevel: "debug", LogFormat: "json"})
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	ConfigureLogging(&config.Config{LogLevel: "chatty", LogFormat: "text"})
	assert.Equal(t, log.InfoLevel, log.GetLevel())
	assert.IsType(t, &log.TextFormatter{}, log.StandardLogger().Formatter)
}
