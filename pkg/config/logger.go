package config

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// NewLogger builds the root logger described by the config. Output always
// goes to stderr; when LogFile is set it is mirrored to that file, and the
// returned closer closes it.
func (c *Config) NewLogger(stderr io.Writer) (hclog.Logger, io.Closer, error) {
	out := stderr
	var closer io.Closer = io.NopCloser(nil)

	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o666)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(stderr, f)
		closer = f
	}

	level := hclog.LevelFromString(c.LogLevel)
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "nachos",
		Level:  level,
		Output: out,
	})

	if level == hclog.NoLevel {
		logger.SetLevel(hclog.Info)
		logger.Warn("unknown log level, using INFO", "level", strings.ToUpper(c.LogLevel))
	}

	return logger, closer, nil
}
