package logger

import (
	"log/slog"
	"os"
)

// Init installs a JSON slog handler as the process default.
func Init() {
	h := slog.NewJSONHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(h))
}

func Fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}
