// Package settings manages the application's file-based configuration:
// settings.json for durable preferences, ui_settings.json as an opaque
// frontend blob, and typography.yaml for rendering.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// SettingsVersion is the current settings.json format version.
const SettingsVersion = "1.0"

// Settings is the durable application configuration.
type Settings struct {
	Version string         `json:"version"`
	User    UserSettings   `json:"user"`
	Editor  EditorSettings `json:"editor"`
	Export  ExportSettings `json:"export"`
	I18n    I18nSettings   `json:"i18n"`
}

// UserSettings holds the local identity. CanReroll gates one-time random
// renaming.
type UserSettings struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CanReroll bool   `json:"can_reroll"`
}

// EditorSettings holds highlight and font defaults.
type EditorSettings struct {
	DefaultHighlightColor string `json:"default_highlight_color"`
	DefaultHighlightType  string `json:"default_highlight_type"`
	FontSize              int    `json:"font_size"`
	FontFamily            string `json:"font_family"`
}

// ExportSettings holds export defaults.
type ExportSettings struct {
	DefaultFormat      string `json:"default_format"`
	ShowNotesByDefault bool   `json:"show_notes_by_default"`
}

// I18nSettings holds the UI language.
type I18nSettings struct {
	Language string `json:"language"`
}

// Manager reads and writes the configuration files under one data
// directory.
type Manager struct {
	dir string
}

// NewManager creates a manager rooted at dir.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Path returns the settings.json location.
func (m *Manager) Path() string { return filepath.Join(m.dir, "settings.json") }

// UIPath returns the ui_settings.json location.
func (m *Manager) UIPath() string { return filepath.Join(m.dir, "ui_settings.json") }

// Default returns a fresh settings record with a new user identity.
func Default() *Settings {
	return &Settings{
		Version: SettingsVersion,
		User: UserSettings{
			ID:        uuid.NewString(),
			Name:      "admin",
			CanReroll: true,
		},
		Editor: EditorSettings{
			DefaultHighlightColor: "#ffd700",
			DefaultHighlightType:  "underline",
			FontSize:              16,
			FontFamily:            "system-ui",
		},
		Export: ExportSettings{
			DefaultFormat:      "html",
			ShowNotesByDefault: true,
		},
		I18n: I18nSettings{Language: "en"},
	}
}

// Load reads settings.json, bootstrapping defaults on first run.
func (m *Manager) Load() (*Settings, error) {
	data, err := os.ReadFile(m.Path())
	if os.IsNotExist(err) {
		s := Default()
		if err := m.Save(s); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}
	return &s, nil
}

// Save writes settings.json.
func (m *Manager) Save(s *Settings) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.Path(), data, 0o644)
}

// LoadUI returns the raw ui_settings.json blob, or nil when absent. The
// payload belongs to the frontend; it is stored and returned untouched.
func (m *Manager) LoadUI() ([]byte, error) {
	data, err := os.ReadFile(m.UIPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// SaveUI stores the ui_settings.json blob after checking it is JSON.
func (m *Manager) SaveUI(data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("ui settings: invalid json")
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(m.UIPath(), data, 0o644)
}
