package cli

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// newLogger builds the CLI logger: text to w at the named level.
func newLogger(level string, w io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: lvl < logrus.DebugLevel,
		FullTimestamp:    true,
	})
	return log, nil
}
