package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var log *logrus.Logger

// Init configures the process logger. Unknown levels fall back to info and
// unknown formats to text.
func Init(level, format string) error {
	return InitWithOutput(level, format, os.Stdout)
}

func InitWithOutput(level, format string, out io.Writer) error {
	l := logrus.New()

	switch level {
	case "debug":
		l.SetLevel(logrus.DebugLevel)
	case "info":
		l.SetLevel(logrus.InfoLevel)
	case "warn":
		l.SetLevel(logrus.WarnLevel)
	case "error":
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}

	switch format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	l.SetOutput(out)
	log = l

	return nil
}

// Logger returns the underlying logrus logger, creating a default one if
// Init was never called.
func Logger() *logrus.Logger {
	if log == nil {
		log = logrus.New()
	}
	return log
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	return Logger().WithFields(fields)
}

func WithError(err error) *logrus.Entry {
	return Logger().WithError(err)
}

func Debugf(format string, args ...interface{}) {
	if log != nil {
		log.Debugf(format, args...)
	}
}

func Info(args ...interface{}) {
	if log != nil {
		log.Info(args...)
	}
}

func Infof(format string, args ...interface{}) {
	if log != nil {
		log.Infof(format, args...)
	}
}

func Warnf(format string, args ...interface{}) {
	if log != nil {
		log.Warnf(format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if log != nil {
		log.Errorf(format, args...)
	} else {
		fmt.Printf("ERROR: "+format+"\n", args...)
	}
}

func Fatalf(format string, args ...interface{}) {
	if log != nil {
		log.Fatalf(format, args...)
	} else {
		fmt.Printf("FATAL: "+format+"\n", args...)
		os.Exit(1)
	}
}
