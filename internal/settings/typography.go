package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/AkutaZehy/Annoti/internal/render"
)

// Typography holds the rendering configuration kept in typography.yaml.
// WrapWidth drives plain-text line wrapping.
type Typography struct {
	WrapWidth  int     `yaml:"wrap_width" json:"wrapWidth"`
	LineHeight float64 `yaml:"line_height" json:"lineHeight"`
	ParaSpace  float64 `yaml:"para_space" json:"paraSpace"`
	Justify    bool    `yaml:"justify" json:"justify"`
}

// DefaultTypography returns the built-in rendering defaults.
func DefaultTypography() *Typography {
	return &Typography{
		WrapWidth:  render.DefaultWrapWidth,
		LineHeight: 1.6,
		ParaSpace:  0.8,
	}
}

// TypographyPath returns the typography.yaml location.
func (m *Manager) TypographyPath() string {
	return filepath.Join(m.dir, "typography.yaml")
}

// LoadTypography reads typography.yaml, falling back to defaults when the
// file is absent. Missing keys keep their defaults.
func (m *Manager) LoadTypography() (*Typography, error) {
	t := DefaultTypography()
	data, err := os.ReadFile(m.TypographyPath())
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading typography: %w", err)
	}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parsing typography: %w", err)
	}
	if t.WrapWidth <= 0 {
		t.WrapWidth = render.DefaultWrapWidth
	}
	return t, nil
}

// SaveTypography writes typography.yaml.
func (m *Manager) SaveTypography(t *Typography) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(t)
	if err != nil {
		return err
	}
	return os.WriteFile(m.TypographyPath(), data, 0o644)
}
