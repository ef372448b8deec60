package config

import (
	"os"
	"path/filepath"
)

// GetUserConfigDir returns ~/.agentcore, the directory core.yaml lives in.
func GetUserConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, ".agentcore"), nil
}

// GetProjectDir walks up from the working directory looking for a
// .agentcore or .git directory, falling back to the working directory
// itself if neither is found.
func GetProjectDir() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	// Walk up directory tree to find .git or .agentcore directory
	dir := wd
	for {
		agentcoreDir := filepath.Join(dir, ".agentcore")
		if _, err := os.Stat(agentcoreDir); err == nil {
			return dir, nil
		}

		gitDir := filepath.Join(dir, ".git")
		if _, err := os.Stat(gitDir); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory, use current working directory
			return wd, nil
		}
		dir = parent
	}
}

// EnsureConfigDirs creates both the user and project config directories.
func EnsureConfigDirs(userConfigDir, projectDir string) error {
	if err := os.MkdirAll(userConfigDir, 0755); err != nil {
		return err
	}

	projectConfigDir := filepath.Join(projectDir, ".agentcore")
	if err := os.MkdirAll(projectConfigDir, 0755); err != nil {
		return err
	}

	return nil
}
