package logging

import (
	"log/slog"
)

// SetupMCPMode initializes logging for MCP server mode.
// The MCP transport uses stdout exclusively for JSON-RPC framing, so logs
// go to the rotating file only; any write to stdout or stderr corrupts the
// protocol stream and the client drops the connection.
func SetupMCPMode() (func(), error) {
	cfg := Config{
		Level:         "debug", // full diagnostics; the file is the only trace
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)

	slog.Info("MCP mode logging initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level),
		slog.Bool("stderr_disabled", true))

	return cleanup, nil
}

// SetupMCPModeWithLevel initializes MCP-safe logging with a specific level.
func SetupMCPModeWithLevel(level string) (func(), error) {
	cfg := Config{
		Level:         level,
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	return cleanup, nil
}
