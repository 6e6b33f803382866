package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpscan/internal/interfaces"
)

// JSONSink writes the whole batch, records, metrics and stats included, as one document
type JSONSink struct {
	target fileTarget
	logger arbor.ILogger
}

var _ interfaces.Sink = (*JSONSink)(nil)

func NewJSONSink(dir, prefix string, logger arbor.ILogger) *JSONSink {
	return &JSONSink{target: fileTarget{dir: dir, prefix: prefix}, logger: logger}
}

func (s *JSONSink) Name() string { return "json" }

func (s *JSONSink) Write(ctx context.Context, batch interfaces.Batch) error {
	if err := ctx.Err(); err != nil && !batch.Partial {
		return err
	}

	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}

	path := s.target.path(batch, "json")
	if err := s.target.write(path, data); err != nil {
		return err
	}

	s.logger.Info().Str("path", path).Int("records", len(batch.Records)).Msg("JSON export written")
	return nil
}
