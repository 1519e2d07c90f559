package filesystem

import (
	"os"
	"path/filepath"
	"strings"
)

// UserHomeDir returns the current user's home directory.
// If the home directory cannot be determined, it returns "." as a fallback.
func UserHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

// ExpandPath resolves a leading ~ against the home directory.
func ExpandPath(path string) string {
	if path == "~" {
		return UserHomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(UserHomeDir(), path[2:])
	}
	return path
}

// AbsRoot cleans and absolutises an analysis root, defaulting to the working directory.
func AbsRoot(root string) (string, error) {
	if root == "" {
		root = "."
	}
	return filepath.Abs(ExpandPath(root))
}
