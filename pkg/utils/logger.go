package utils

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger represents a run logger. File output always goes to the rotating
// log under .appforge; process steps are additionally echoed to stdout.
type Logger struct {
	logger   *log.Logger
	echo     bool
	jsonMode bool
	runID    string
}

var (
	globalLogger *Logger
	once         sync.Once
)

// GetLogger returns the singleton instance of Logger.
// The echo parameter controls whether process steps are printed to stdout.
// This value can be overridden on subsequent calls to GetLogger.
func GetLogger(echo bool) *Logger {
	once.Do(func() {
		logFile := &lumberjack.Logger{
			Filename:   ".appforge/appforge.log",
			MaxSize:    15, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		globalLogger = &Logger{
			logger: log.New(logFile, "", log.LstdFlags),
		}
	})
	globalLogger.echo = echo
	if os.Getenv("APPFORGE_JSON_LOGS") == "1" {
		globalLogger.jsonMode = true
	}
	if rid := os.Getenv("APPFORGE_RUN_ID"); rid != "" {
		globalLogger.runID = rid
	}
	return globalLogger
}

// Close closes the logger resources.
func (w *Logger) Close() error {
	if logFile, ok := w.logger.Writer().(*lumberjack.Logger); ok {
		return logFile.Close()
	}
	return nil
}

// SetRunID tags subsequent JSON log lines with the given run identifier.
func (w *Logger) SetRunID(runID string) {
	w.runID = runID
}

// LogProcessStep logs the current step in a run and echoes it to stdout.
func (w *Logger) LogProcessStep(step string) {
	w.logger.Printf("Process Step: %s", step)
	if w.echo {
		fmt.Println(step)
	}
}

// Log logs a general message only to the log file.
func (w *Logger) Log(message string) {
	if w.jsonMode {
		_ = json.NewEncoder(w.logger.Writer()).Encode(map[string]any{"level": "info", "msg": message, "run_id": w.runID})
		return
	}
	w.logger.Print(message)
}

// Logf logs a formatted general message only to the log file.
func (w *Logger) Logf(format string, v ...interface{}) {
	if w.jsonMode {
		w.Log(fmt.Sprintf(format, v...))
		return
	}
	w.logger.Printf(format, v...)
}

func (w *Logger) LogError(err error) {
	if w.jsonMode {
		_ = json.NewEncoder(w.logger.Writer()).Encode(map[string]any{"level": "error", "error": err.Error(), "run_id": w.runID})
		return
	}
	w.logger.Printf("Error: %s", err)
}
