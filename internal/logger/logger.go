package logger

import (
	"io"
	"log"
	"os"

	"Go2NetIDS/internal/config"

	"github.com/sirupsen/logrus"
)

// Logger is the process-wide logger. Packages log through it directly.
var Logger = logrus.New()

// InitLogger configures format, output and level. A nil output keeps stderr
// unless cfg.Stdout is set.
func InitLogger(cfg config.LogConfig, output io.Writer) {
	if cfg.JSON {
		Logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			DisableColors: true,
		})
	}

	if output != nil {
		Logger.SetOutput(output)
		log.SetOutput(output)
	} else if cfg.Stdout {
		Logger.SetOutput(os.Stdout)
		log.SetOutput(os.Stdout)
	}

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	if lvl, err := logrus.ParseLevel(level); err == nil {
		Logger.SetLevel(lvl)
	} else {
		Logger.WithError(err).Errorf("Couldn't parse log level %q", level)
		Logger.SetLevel(logrus.InfoLevel)
	}
}

// WithComponent returns an entry tagged with the emitting component.
func WithComponent(name string) *logrus.Entry {
	return Logger.WithField("component", name)
}
