// Package macro rotates the economic backdrop shown alongside the deck.
// A scenario stays active for three days, then the next one in the catalog
// takes over; the rotation is a pure function of the calendar date.
package macro

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
)

// RotationDays is how long each scenario stays active.
const RotationDays = 3

//go:embed scenarios.yaml
var builtinYAML []byte

// Provider serves scenarios from a fixed, ordered catalog.
type Provider struct {
	catalog []domain.MacroScenario
	byID    map[string]int
}

// NewProvider builds a provider. Sector keys are lowercased so that
// SectorBias lookups are case-insensitive.
func NewProvider(catalog []domain.MacroScenario) (*Provider, error) {
	if len(catalog) == 0 {
		return nil, fmt.Errorf("macro: %w", domain.ErrEmptyCatalog)
	}
	p := &Provider{
		catalog: make([]domain.MacroScenario, len(catalog)),
		byID:    make(map[string]int, len(catalog)),
	}
	for i, s := range catalog {
		id := strings.ToLower(strings.TrimSpace(s.ID))
		if id == "" {
			return nil, fmt.Errorf("macro: scenario %d has no id", i)
		}
		if _, dup := p.byID[id]; dup {
			return nil, fmt.Errorf("macro: duplicate scenario id %q", s.ID)
		}
		bias := make(map[string]domain.Bias, len(s.SectorBias))
		for sector, b := range s.SectorBias {
			bias[normalize(sector)] = b
		}
		s.SectorBias = bias
		p.catalog[i] = s
		p.byID[id] = i
	}
	return p, nil
}

// Builtin returns a provider over the embedded catalog.
func Builtin() *Provider {
	catalog, err := ParseCatalog(builtinYAML)
	if err != nil {
		panic(fmt.Sprintf("macro: embedded catalog: %v", err))
	}
	p, err := NewProvider(catalog)
	if err != nil {
		panic(fmt.Sprintf("macro: embedded catalog: %v", err))
	}
	return p
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path string) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario catalog: %w", err)
	}
	catalog, err := ParseCatalog(data)
	if err != nil {
		return nil, err
	}
	return NewProvider(catalog)
}

// ParseCatalog decodes a YAML list of scenarios.
func ParseCatalog(data []byte) ([]domain.MacroScenario, error) {
	var catalog []domain.MacroScenario
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse scenario catalog: %w", err)
	}
	return catalog, nil
}

// Index returns the catalog position active on the given date.
func (p *Provider) Index(date time.Time) int {
	return (date.YearDay() / RotationDays) % len(p.catalog)
}

// ScenarioForDate returns the scenario active on the calendar day of date.
// The day is read in date's own location.
func (p *Provider) ScenarioForDate(date time.Time) domain.MacroScenario {
	return p.catalog[p.Index(date)]
}

// Scenario looks up a scenario by id.
func (p *Provider) Scenario(id string) (domain.MacroScenario, bool) {
	i, ok := p.byID[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return domain.MacroScenario{}, false
	}
	return p.catalog[i], true
}

// SectorBias returns the scenario's tilt toward sector. Unknown scenarios,
// unmapped sectors and blank sectors all yield BiasNeutral.
func (p *Provider) SectorBias(scenarioID, sector string) domain.Bias {
	s, ok := p.Scenario(scenarioID)
	if !ok {
		return domain.BiasNeutral
	}
	b, ok := s.SectorBias[normalize(sector)]
	if !ok {
		return domain.BiasNeutral
	}
	switch b {
	case domain.BiasPositive, domain.BiasNegative:
		return b
	}
	return domain.BiasNeutral
}

// LongTermFavorable reports whether the scenario rewards long holding periods.
func (p *Provider) LongTermFavorable(scenarioID string) bool {
	s, ok := p.Scenario(scenarioID)
	return ok && s.LongTermFavorable
}

// Catalog returns a copy of the ordered catalog.
func (p *Provider) Catalog() []domain.MacroScenario {
	out := make([]domain.MacroScenario, len(p.catalog))
	copy(out, p.catalog)
	return out
}

// Len returns the catalog size.
func (p *Provider) Len() int { return len(p.catalog) }

func normalize(sector string) string {
	return strings.ToLower(strings.TrimSpace(sector))
}
