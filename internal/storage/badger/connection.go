package badger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/corpscan/internal/common"
	"github.com/timshannon/badgerhold/v4"
)

// BadgerDB owns the checkpoint database
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	path   string
}

// NewBadgerDB opens the checkpoint database at config.Path, deleting it
// first when reset_on_startup is set
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("badger path is required")
	}

	if config.ResetOnStartup {
		logger.Info().Str("path", config.Path).Msg("Resetting checkpoint database")
		if err := os.RemoveAll(config.Path); err != nil {
			return nil, fmt.Errorf("failed to reset checkpoint database: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// checkpoints are rewritten in place; older versions are never read
	opts := badger.DefaultOptions(config.Path).
		WithLogger(badgerLogger{logger: logger}).
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true)

	store, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint database at %s: %w", config.Path, err)
	}

	logger.Debug().Str("path", config.Path).Msg("Checkpoint database opened")
	return &BadgerDB{store: store, logger: logger, path: config.Path}, nil
}

// Store returns the badgerhold store
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Close flushes and closes the database. Safe to call more than once.
func (b *BadgerDB) Close() error {
	if b.store == nil {
		return nil
	}
	err := b.store.Close()
	b.store = nil
	if err != nil {
		return fmt.Errorf("failed to close checkpoint database at %s: %w", b.path, err)
	}
	return nil
}

// badgerLogger forwards badger's internal messages to arbor. Info and debug
// chatter is demoted to debug.
type badgerLogger struct {
	logger arbor.ILogger
}

var _ badger.Logger = badgerLogger{}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Str("component", "badger").Msg(clean(format, args))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Str("component", "badger").Msg(clean(format, args))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Str("component", "badger").Msg(clean(format, args))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Str("component", "badger").Msg(clean(format, args))
}

func clean(format string, args []interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
