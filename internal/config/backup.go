package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Aman-CERP/amanrag/configs"
)

// MaxBackups is the number of user config backups kept.
const MaxBackups = 3

// backupSuffix separates the config path from the backup timestamp.
const backupSuffix = ".bak."

// BackupFile copies path to a timestamped sibling and prunes old backups.
// It returns "" when path does not exist.
func BackupFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read config for backup: %w", err)
	}

	backup := path + backupSuffix + time.Now().Format("20060102-150405.000")
	if err := os.WriteFile(backup, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	backups, err := ListBackups(path)
	if err == nil && len(backups) > MaxBackups {
		for _, old := range backups[MaxBackups:] {
			_ = os.Remove(old)
		}
	}
	return backup, nil
}

// ListBackups returns the backups of path, newest first.
func ListBackups(path string) ([]string, error) {
	matches, err := filepath.Glob(path + backupSuffix + "*")
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	// Timestamps sort lexically.
	slices.SortFunc(matches, func(a, b string) int {
		return strings.Compare(b, a)
	})
	return matches, nil
}

// InitUserConfig writes the commented user template to the user config
// path, backing up any existing file first. It returns the backup path, if
// one was made.
func InitUserConfig() (string, error) {
	return writeTemplate(UserConfigPath(), configs.UserConfigTemplate)
}

// InitProjectConfig writes the commented project template to
// dir/.amanrag.yaml, backing up any existing file first.
func InitProjectConfig(dir string) (path, backup string, err error) {
	path = filepath.Join(dir, ProjectConfigName)
	backup, err = writeTemplate(path, configs.ProjectConfigTemplate)
	return path, backup, err
}

func writeTemplate(path, template string) (string, error) {
	backup, err := BackupFile(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return backup, fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return backup, fmt.Errorf("write config file: %w", err)
	}
	return backup, nil
}
