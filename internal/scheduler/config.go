package scheduler

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"momentum-core/pkg/exchanges/common"
)

// StrategyConfig is one scheduled strategy from the YAML file. Triggers fire
// daily at hour:01:second in the process timezone; the close trigger fires
// hold_hours later.
type StrategyConfig struct {
	Name        string  `yaml:"name"`
	Exchange    string  `yaml:"exchange"`
	Hour        int     `yaml:"hour"`
	Second      int     `yaml:"second"`
	HoldHours   int     `yaml:"hold_hours"`
	Rank        int     `yaml:"rank"`
	TargetPct   float64 `yaml:"target_pct"`
	StopLossPct float64 `yaml:"stop_loss_pct"` // ROE terms, margined venues only
	Side        string  `yaml:"side"`
}

type strategyFile struct {
	Strategies []StrategyConfig `yaml:"strategies"`
}

// LoadStrategies reads and validates the strategy schedule file.
func LoadStrategies(path string) ([]StrategyConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy config: %w", err)
	}
	var file strategyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse strategy config: %w", err)
	}

	seen := make(map[string]bool)
	for i := range file.Strategies {
		s := &file.Strategies[i]
		if s.Name == "" {
			return nil, fmt.Errorf("strategy %d: name is required", i)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("strategy %q: duplicate name", s.Name)
		}
		seen[s.Name] = true
		if s.Exchange != string(common.ExchangeBithumb) && s.Exchange != string(common.ExchangeBitget) {
			return nil, fmt.Errorf("strategy %q: unknown exchange %q", s.Name, s.Exchange)
		}
		if s.Hour < 0 || s.Hour > 23 {
			return nil, fmt.Errorf("strategy %q: hour %d out of range", s.Name, s.Hour)
		}
		if s.Second < 0 || s.Second > 59 {
			return nil, fmt.Errorf("strategy %q: second %d out of range", s.Name, s.Second)
		}
		if s.HoldHours <= 0 {
			return nil, fmt.Errorf("strategy %q: hold_hours must be positive", s.Name)
		}
		if s.Rank <= 0 {
			s.Rank = 1
		}
		if s.Side == "" {
			s.Side = string(common.SideLong)
		}
		if s.Side != string(common.SideLong) && s.Side != string(common.SideShort) {
			return nil, fmt.Errorf("strategy %q: unknown side %q", s.Name, s.Side)
		}
		if s.Side == string(common.SideShort) && s.Exchange == string(common.ExchangeBithumb) {
			return nil, fmt.Errorf("strategy %q: spot exchange cannot short", s.Name)
		}
	}
	return file.Strategies, nil
}
