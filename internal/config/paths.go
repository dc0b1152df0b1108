package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths are the XDG locations the companion reads from and writes to.
type Paths struct {
	Config string // ~/.config/companion: companion.json, personalities/
	State  string // ~/.local/state/companion: chat client state
}

// GetPaths resolves Paths from XDG_CONFIG_HOME and XDG_STATE_HOME, falling
// back to the usual home-relative defaults (APPDATA on Windows).
func GetPaths() *Paths {
	return &Paths{
		Config: filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "companion"),
		State:  filepath.Join(xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state")), "companion"),
	}
}

// EnsurePaths creates the directories.
func (p *Paths) EnsurePaths() error {
	for _, dir := range []string{p.Config, p.State} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// PersonalitiesDir holds user personality descriptors (*.yaml).
func (p *Paths) PersonalitiesDir() string {
	return filepath.Join(p.Config, "personalities")
}

// ChatStateDir is the storage root of the chat client.
func (p *Paths) ChatStateDir() string {
	return p.State
}

func xdgDir(env, homeRel string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), homeRel)
}
