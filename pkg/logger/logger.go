package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var log = newLogger(os.Stdout)

func newLogger(out io.Writer) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Logger()
}

// Init sets the output level. Unknown levels fall back to info.
func Init(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Printf(format string, v ...interface{}) {
	log.Info().Msg(strings.TrimSuffix(fmt.Sprintf(format, v...), "\n"))
}

func Println(v ...interface{}) {
	log.Info().Msg(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// ExitIfErr logs msg with err and terminates the process.
func ExitIfErr(err error, msg string) {
	if err != nil {
		log.Fatal().Err(err).Msg(msg)
	}
}
