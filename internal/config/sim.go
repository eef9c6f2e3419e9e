package config

import (
	"fmt"
	"log/slog"
	"time"
)

// SimConfig configures cmd/homesim.
type SimConfig struct {
	AppEnv   string
	LogLevel slog.Level

	HomeID   string
	Interval time.Duration
	Windows  int
	// Steps stops the simulator after that many ticks; 0 runs until cancelled.
	Steps int

	MQTTEnabled  bool
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTTopic    string
}

func LoadSimFromEnv() (SimConfig, error) {
	appEnv, level, err := loadCommon()
	if err != nil {
		return SimConfig{}, err
	}

	homeID := envOr("SIM_HOME_ID", "home")
	interval, err := envDuration("SIM_INTERVAL", 2*time.Second)
	if err != nil {
		return SimConfig{}, err
	}
	if interval <= 0 {
		return SimConfig{}, fmt.Errorf("SIM_INTERVAL must be positive, got %v", interval)
	}
	windows, err := envInt("SIM_WINDOWS", 3)
	if err != nil {
		return SimConfig{}, err
	}
	if windows < 0 {
		return SimConfig{}, fmt.Errorf("SIM_WINDOWS must be >= 0, got %d", windows)
	}
	steps, err := envInt("SIM_STEPS", 0)
	if err != nil {
		return SimConfig{}, err
	}
	if steps < 0 {
		return SimConfig{}, fmt.Errorf("SIM_STEPS must be >= 0, got %d", steps)
	}

	mqttEnabled, err := envBool("MQTT_ENABLED", false)
	if err != nil {
		return SimConfig{}, err
	}
	mqttPort, err := envInt("MQTT_PORT", 1883)
	if err != nil {
		return SimConfig{}, err
	}

	return SimConfig{
		AppEnv:       appEnv,
		LogLevel:     level,
		HomeID:       homeID,
		Interval:     interval,
		Windows:      windows,
		Steps:        steps,
		MQTTEnabled:  mqttEnabled,
		MQTTBroker:   envOr("MQTT_BROKER", "localhost"),
		MQTTPort:     mqttPort,
		MQTTClientID: envOr("MQTT_CLIENT_ID", "homenet-sim-"+homeID),
		MQTTTopic:    envOr("MQTT_TOPIC", fmt.Sprintf("homenet/home/%s/telemetry", homeID)),
	}, nil
}
