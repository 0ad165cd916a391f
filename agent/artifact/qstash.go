package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/interviewforge/agent/contract"
)

// Publisher is the subset of the QStash client the sink needs.
type Publisher interface {
	Publish(ctx context.Context, destination string, body []byte, headers map[string]string) (string, error)
}

// QStashSink publishes summary.json of each run to a QStash destination.
type QStashSink struct {
	publisher   Publisher
	destination string
	log         zerolog.Logger
}

func NewQStashSink(publisher Publisher, destination string, logger zerolog.Logger) (*QStashSink, error) {
	if publisher == nil {
		return nil, errors.New("qstash publisher is required")
	}
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, errors.New("qstash destination is required")
	}
	return &QStashSink{
		publisher:   publisher,
		destination: destination,
		log:         logger.With().Str("component", "qstash_sink").Logger(),
	}, nil
}

func (s *QStashSink) Write(ctx context.Context, bundle contractx.ArtifactBundle) (string, error) {
	body, err := json.Marshal(bundle.Summary)
	if err != nil {
		return "", fmt.Errorf("encode summary: %w", err)
	}

	id, err := s.publisher.Publish(ctx, s.destination, body, map[string]string{
		"X-Interview-Run-Id": bundle.RunID,
	})
	if err != nil {
		return "", fmt.Errorf("publish summary: %w", err)
	}
	s.log.Info().Str("run_id", bundle.RunID).Str("message_id", id).Msg("summary published")
	return "qstash:" + id, nil
}
