package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// AppName tags every log line.
const AppName = "office-tools"

// InitLogger builds the console logger and installs it as the global
// zerolog logger. Unknown levels fall back to info.
func InitLogger(level string, out io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	_, isFile := out.(*os.File)
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    !isFile,
	}
	logger := zerolog.New(output).Level(lvl).With().Timestamp().Str("app", AppName).Logger()
	log.Logger = logger
	return logger
}

// LogWriter returns where logs go for a transport. The stdio transport owns
// stdout for protocol frames, so its logs go to stderr.
func LogWriter(transport string) io.Writer {
	if transport == "stdio" {
		return os.Stderr
	}
	return os.Stdout
}
