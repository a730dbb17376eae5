package question

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed facts.yaml
var defaultFacts []byte

// Facts is the static data the generators draw from.
type Facts struct {
	Champions      []Champion      `yaml:"champions"`
	Items          []Item          `yaml:"items"`
	SummonerSpells []SummonerSpell `yaml:"summoner_spells"`
}

type Champion struct {
	Name    string   `yaml:"name"`
	Title   string   `yaml:"title"`
	Image   string   `yaml:"image"`
	Lore    string   `yaml:"lore"`
	Passive Ability  `yaml:"passive"`
	Spells  []Spell  `yaml:"spells"`
	Quotes  []string `yaml:"quotes"`
}

type Ability struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type Spell struct {
	Name  string `yaml:"name"`
	Image string `yaml:"image"`
}

type Item struct {
	Name       string             `yaml:"name"`
	Image      string             `yaml:"image"`
	Gold       int                `yaml:"gold"`
	Stats      map[string]float64 `yaml:"stats"`
	BuildsFrom []string           `yaml:"builds_from"`
}

type SummonerSpell struct {
	Name     string `yaml:"name"`
	Image    string `yaml:"image"`
	Cooldown string `yaml:"cooldown"`
}

// LoadFacts reads a YAML fact pack. An empty path loads the pack bundled
// with the binary.
func LoadFacts(path string) (*Facts, error) {
	b := defaultFacts
	if path != "" {
		var err error
		if b, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("question: read facts %s: %w", path, err)
		}
	}

	return ParseFacts(b)
}

func ParseFacts(b []byte) (*Facts, error) {
	var f Facts
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("question: parse facts: %w", err)
	}

	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("question: invalid facts: %w", err)
	}

	return &f, nil
}

func (f *Facts) validate() error {
	for i, c := range f.Champions {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("champion %d has no name", i)
		}
		if len(c.Spells) > len(spellKeys) {
			return fmt.Errorf("champion %s has %d spells, at most %d allowed", c.Name, len(c.Spells), len(spellKeys))
		}
	}

	for i, it := range f.Items {
		if strings.TrimSpace(it.Name) == "" {
			return fmt.Errorf("item %d has no name", i)
		}
	}

	for i, s := range f.SummonerSpells {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("summoner spell %d has no name", i)
		}
	}

	return nil
}
