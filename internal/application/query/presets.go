package query

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

//go:embed presets.yaml
var defaultPresetsYAML []byte

// Preset is a named example workload: a model, a top-k and one or more
// prompt sets to rotate through.
type Preset struct {
	Name        string     `yaml:"name" json:"name"`
	Short       string     `yaml:"short" json:"short"`
	Description string     `yaml:"description" json:"description"`
	Model       string     `yaml:"model" json:"model"`
	TopK        int        `yaml:"topk" json:"topk"`
	Sets        [][]Prompt `yaml:"sets" json:"sets"`
}

// Query returns the query for set i.
func (p Preset) Query(i int) (Query, error) {
	if i < 0 || i >= len(p.Sets) {
		return Query{}, errors.Newf(errors.ErrCodePresetNotFound, "preset %s has no set %d", p.Name, i)
	}
	prompts := make([]Prompt, len(p.Sets[i]))
	for j, pr := range p.Sets[i] {
		prompts[j] = Prompt{Template: pr.Template, Subjects: append([]string(nil), pr.Subjects...)}
	}
	return Query{Model: p.Model, TopK: p.TopK, Prompts: prompts}, nil
}

// PresetCatalog serves presets and remembers each one's rotation position.
// It is safe for concurrent use.
type PresetCatalog struct {
	presets []Preset

	mu     sync.Mutex
	cursor map[string]int
}

// DefaultPresets parses the embedded catalog.
func DefaultPresets() (*PresetCatalog, error) {
	return ParsePresets(defaultPresetsYAML)
}

// ParsePresets reads a YAML list of presets and checks that every set
// builds a valid request.
func ParsePresets(data []byte) (*PresetCatalog, error) {
	var presets []Preset
	if err := yaml.Unmarshal(data, &presets); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "parse presets")
	}
	c := &PresetCatalog{cursor: make(map[string]int, len(presets))}
	names := make(map[string]bool)
	for _, p := range presets {
		if p.Name == "" || len(p.Sets) == 0 {
			return nil, errors.Newf(errors.ErrCodeValidation, "preset %q needs a name and at least one set", p.Name)
		}
		for _, key := range []string{strings.ToLower(p.Name), strings.ToLower(p.Short)} {
			if key == "" {
				continue
			}
			if names[key] {
				return nil, errors.Newf(errors.ErrCodeValidation, "duplicate preset name %q", key)
			}
			names[key] = true
		}
		for i := range p.Sets {
			q, _ := p.Query(i)
			if err := Validate(q); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeValidation, fmt.Sprintf("preset %s set %d", p.Name, i))
			}
		}
		// The first Next call lands on set 0.
		c.cursor[p.Name] = len(p.Sets) - 1
		c.presets = append(c.presets, p)
	}
	return c, nil
}

// List returns the presets in catalog order.
func (c *PresetCatalog) List() []Preset {
	return append([]Preset(nil), c.presets...)
}

// Get looks a preset up by name or short name, ignoring case.
func (c *PresetCatalog) Get(name string) (Preset, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, p := range c.presets {
		if strings.ToLower(p.Name) == key || (p.Short != "" && strings.ToLower(p.Short) == key) {
			return p, nil
		}
	}
	return Preset{}, errors.Newf(errors.ErrCodePresetNotFound, "unknown preset %q", name)
}

// Next advances the preset's rotation and returns the query for the new
// position along with its set index.
func (c *PresetCatalog) Next(name string) (Query, int, error) {
	p, err := c.Get(name)
	if err != nil {
		return Query{}, 0, err
	}
	c.mu.Lock()
	i := (c.cursor[p.Name] + 1) % len(p.Sets)
	c.cursor[p.Name] = i
	c.mu.Unlock()

	q, err := p.Query(i)
	return q, i, err
}
