package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/rinklog/go/internal/models"
	"github.com/mcdev12/rinklog/go/internal/session/clock"
)

// Profile is the yaml session profile: clock rules for the league being
// logged, the views a new device starts with, and its logger name.
type Profile struct {
	Clock        clock.Rules `yaml:"clock"`
	DefaultViews []string    `yaml:"default_views"`
	LoggerName   string      `yaml:"logger_name"`
}

func DefaultProfile() Profile {
	return Profile{Clock: clock.DefaultRules()}
}

// LoadProfile reads a profile file. An empty path yields DefaultProfile.
func LoadProfile(path string) (Profile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to read profile: %w", err)
	}

	profile := DefaultProfile()
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return Profile{}, fmt.Errorf("failed to parse profile: %w", err)
	}
	if _, err := profile.Views(); err != nil {
		return Profile{}, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	if profile.Clock.PeriodMinutes < 0 || profile.Clock.MaxPeriod < 0 {
		return Profile{}, fmt.Errorf("invalid profile %s: clock rules must not be negative", path)
	}
	return profile, nil
}

// Views parses DefaultViews
func (p Profile) Views() ([]models.ViewID, error) {
	return models.ParseViewIDs(p.DefaultViews)
}
