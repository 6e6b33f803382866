// -----------------------------------------------------------------------
// Sinks - batch export fan-out
// -----------------------------------------------------------------------

package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpscan/internal/common"
	"github.com/ternarybob/corpscan/internal/interfaces"
)

// MultiSink writes a batch to every configured sink. One sink failing does
// not stop the others; the joined error is returned.
type MultiSink struct {
	sinks  []interfaces.Sink
	logger arbor.ILogger
}

var _ interfaces.Sink = (*MultiSink)(nil)

func NewMultiSink(logger arbor.ILogger, sinks ...interfaces.Sink) *MultiSink {
	return &MultiSink{sinks: sinks, logger: logger}
}

func (m *MultiSink) Name() string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return strings.Join(names, ",")
}

func (m *MultiSink) Write(ctx context.Context, batch interfaces.Batch) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(ctx, batch); err != nil {
			m.logger.Error().Str("sink", s.Name()).Err(err).Msg("Sink write failed")
			errs = append(errs, fmt.Errorf("%s sink: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// NewFromConfig builds a MultiSink for the configured formats
func NewFromConfig(config common.SinkConfig, logger arbor.ILogger) (*MultiSink, error) {
	var sinks []interfaces.Sink
	for _, format := range config.Formats {
		switch strings.ToLower(format) {
		case "json":
			sinks = append(sinks, NewJSONSink(config.OutputDir, config.FilePrefix, logger))
		case "csv":
			sinks = append(sinks, NewCSVSink(config.OutputDir, config.FilePrefix, logger))
		case "markdown", "md":
			sinks = append(sinks, NewMarkdownSink(config.OutputDir, config.FilePrefix, logger))
		case "html":
			sinks = append(sinks, NewHTMLSink(config.OutputDir, config.FilePrefix, logger))
		case "pdf":
			sinks = append(sinks, NewPDFSink(config.OutputDir, config.FilePrefix, logger))
		default:
			return nil, fmt.Errorf("unknown sink format: %s", format)
		}
	}
	if len(sinks) == 0 {
		return nil, fmt.Errorf("no sink formats configured")
	}
	return NewMultiSink(logger, sinks...), nil
}
