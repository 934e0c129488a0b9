package llm

import (
	"altenheim-avatar/internal/config"
	"altenheim-avatar/internal/domain"
)

// ModelProfile is the model and sampling settings for one conversation mode.
type ModelProfile struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Profiles maps each mode to its profile.
type Profiles map[domain.ChatMode]ModelProfile

// ProfilesFromConfig builds the mode table from loaded configuration.
func ProfilesFromConfig(c config.LLMConfig) Profiles {
	return Profiles{
		domain.ModeCompanion: fromProfileConfig(c.Companion, config.DefaultCompanionTemperature),
		domain.ModeStaff:     fromProfileConfig(c.Staff, config.DefaultStaffTemperature),
	}
}

// DefaultProfiles returns the built-in profiles.
func DefaultProfiles() Profiles {
	return Profiles{
		domain.ModeCompanion: {
			Model:       config.DefaultCompanionModel,
			MaxTokens:   config.DefaultCompanionMaxTokens,
			Temperature: config.DefaultCompanionTemperature,
		},
		domain.ModeStaff: {
			Model:       config.DefaultStaffModel,
			MaxTokens:   config.DefaultStaffMaxTokens,
			Temperature: config.DefaultStaffTemperature,
		},
	}
}

func fromProfileConfig(p config.ProfileConfig, defaultTemp float64) ModelProfile {
	temp := defaultTemp
	if p.Temperature != nil {
		temp = *p.Temperature
	}
	return ModelProfile{Model: p.Model, MaxTokens: p.MaxTokens, Temperature: temp}
}
