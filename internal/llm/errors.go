package llm

import "fmt"

// ProviderError reports a failed call to a generation provider
type ProviderError struct {
	Provider Provider
	Model    string
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s (%s): %s", e.Provider, e.Model, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

func modelFor(config *Config, tier ModelTier) (string, error) {
	name := config.GetModel(tier)
	if name == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}
	return name, nil
}
