package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"homenet/internal/metrics"
	"homenet/internal/modules/weather/types"
	"homenet/internal/mqtt"
)

// Register attaches the ingestion handler to the MQTT subscriber.
func (s *Service) Register(subscriber mqtt.MessageSubscriber) {
	subscriber.SetMessageHandler(s.handleMessage)
}

// handleMessage ingests one MQTT message. The last topic segment names the
// location when the message does not.
func (s *Service) handleMessage(ctx context.Context, topic string, payload []byte) error {
	var req types.IngestRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.metrics.MQTTMessage(metrics.ResultValidationError)
		return fmt.Errorf("decode message on %s: %w", topic, err)
	}
	if strings.TrimSpace(req.Location) == "" {
		req.Location = topicLocation(topic)
	}

	_, err := s.Ingest(ctx, req)
	s.metrics.MQTTMessage(resultLabel(err))
	return err
}

func topicLocation(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
