package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"stake-arena/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	sinkMu sync.RWMutex
	sink   io.Writer = os.Stdout
)

// Init configures the global zerolog logger. Output goes to stdout and, when
// cfg.File is set, to a size-capped file as well.
func Init(cfg config.LogConfig) error {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	var out io.Writer = os.Stdout
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	raw := io.Writer(os.Stdout)
	if cfg.File != "" {
		fw, err := newCappedFile(cfg.File, cfg.MaxMB)
		if err != nil {
			return err
		}
		out = zerolog.MultiLevelWriter(out, fw)
		raw = io.MultiWriter(os.Stdout, fw)
	}

	zerolog.SetGlobalLevel(level)
	ctx := zerolog.New(out).With().Timestamp().Str("service", "stake-arena")
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	logger := ctx.Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger

	sinkMu.Lock()
	sink = raw
	sinkMu.Unlock()
	return nil
}

// Writer returns the raw sink used by non-zerolog loggers (httplog).
func Writer() io.Writer {
	sinkMu.RLock()
	defer sinkMu.RUnlock()
	return sink
}
