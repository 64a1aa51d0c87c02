package domain

// ─── Macro Scenarios ────────────────────────────────────────────────────────

// Bias is a scenario's tilt toward a sector.
type Bias string

const (
	BiasPositive Bias = "positive"
	BiasNegative Bias = "negative"
	BiasNeutral  Bias = "neutral"
)

// Indicator is one headline number shown with a scenario.
type Indicator struct {
	Name      string `json:"name" yaml:"name"`
	Value     string `json:"value" yaml:"value"`
	Direction string `json:"direction" yaml:"direction"` // up, down, flat
}

// MacroScenario describes an economic backdrop that rotates every few days.
type MacroScenario struct {
	ID                string          `json:"id" yaml:"id"`
	Name              string          `json:"name" yaml:"name"`
	Icon              string          `json:"icon" yaml:"icon"`
	Summary           string          `json:"summary" yaml:"summary"`
	Narrative         string          `json:"narrative" yaml:"narrative"`
	Indicators        []Indicator     `json:"indicators" yaml:"indicators"`
	TendsToWin        string          `json:"tends_to_win" yaml:"tends_to_win"`
	TendsToLose       string          `json:"tends_to_lose" yaml:"tends_to_lose"`
	SectorBias        map[string]Bias `json:"sector_bias" yaml:"sector_bias"`
	LongTermFavorable bool            `json:"long_term_favorable" yaml:"long_term_favorable"`
}
