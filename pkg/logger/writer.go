// pkg/logger/writer.go

package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"

	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/shared"
)

// PlatformLogPaths returns candidate log paths in order of preference:
// the system location when running as root, the user state dir, and the
// working directory for development runs.
func PlatformLogPaths() []string {
	paths := []string{shared.LogFile}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".local", "state", shared.AppID, "cephkeys.log"))
	}
	return append(paths, shared.LogFilePWD)
}

// GetLogFileWriter opens the given path for appending, creating the parent
// directory with owner-only permissions first.
func GetLogFileWriter(path string) (zapcore.WriteSyncer, error) {
	if err := EnsureLogPermissions(path); err != nil {
		return nil, fmt.Errorf("log permission error: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return zapcore.AddSync(file), nil
}

// FindWritableLogPath returns the first usable log path for this platform.
func FindWritableLogPath() (string, error) {
	for _, path := range PlatformLogPaths() {
		if _, err := GetLogFileWriter(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no writable log path found")
}

// EnsureLogPermissions creates the log directory and file with restrictive
// permissions. Keyrings pass through this process, so the log must not be
// world readable.
func EnsureLogPermissions(logFilePath string) error {
	dir := filepath.Dir(logFilePath)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}

	if _, err := os.Stat(logFilePath); os.IsNotExist(err) {
		file, err := os.Create(logFilePath)
		if err != nil {
			return err
		}
		if err := file.Close(); err != nil {
			return err
		}
	}

	return os.Chmod(logFilePath, 0o600)
}
