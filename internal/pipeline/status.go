package pipeline

import (
	"fmt"
	"time"
)

// Health status values reported by [Pipeline.HealthCheck].
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

// ProviderStatus is one provider's rate-limit snapshot.
type ProviderStatus struct {
	Name      string    `json:"name"`
	Stage     string    `json:"stage"`
	Remaining int       `json:"remaining"`
	ResetTime time.Time `json:"reset_time"`
}

// CategoryStatus summarises one stage category.
type CategoryStatus struct {
	// Providers lists the configured provider names in priority order.
	Providers []string `json:"providers"`

	// Admissible is how many providers could currently accept a request.
	Admissible int `json:"admissible"`

	// Available is true when at least one provider is admissible.
	Available bool `json:"available"`
}

// ServiceStatus is the full status snapshot exposed on /statusz.
type ServiceStatus struct {
	Providers  []ProviderStatus          `json:"providers"`
	Categories map[string]CategoryStatus `json:"categories"`
}

// Health is the result of [Pipeline.HealthCheck].
type Health struct {
	// Status is one of healthy, degraded, or unhealthy.
	Status string `json:"status"`

	// Categories maps each stage to whether it has an admissible provider.
	Categories map[string]bool `json:"categories"`

	// Details lists human-readable notes about unavailable stages.
	Details []string `json:"details,omitempty"`
}

// ServiceStatus reports per-provider remaining budget and reset times plus
// per-category availability. It inspects rate-limit and breaker state only
// and performs no network calls.
func (p *Pipeline) ServiceStatus() ServiceStatus {
	st := ServiceStatus{
		Categories: make(map[string]CategoryStatus, 3),
	}

	st.Categories[StageRecognition] = CategoryStatus{
		Providers:  p.recognition.Providers(),
		Admissible: p.recognition.Admissible(),
		Available:  p.recognition.Admissible() > 0,
	}
	st.Categories[StageLyrics] = CategoryStatus{
		Providers:  p.lyrics.Providers(),
		Admissible: p.lyrics.Admissible(),
		Available:  p.lyrics.Admissible() > 0,
	}
	st.Categories[StageTranslation] = CategoryStatus{
		Providers:  p.translation.Providers(),
		Admissible: p.translation.Admissible(),
		Available:  p.translation.Admissible() > 0,
	}

	for _, stage := range []string{StageRecognition, StageLyrics, StageTranslation} {
		for _, name := range st.Categories[stage].Providers {
			st.Providers = append(st.Providers, ProviderStatus{
				Name:      name,
				Stage:     stage,
				Remaining: p.limiter.Remaining(name),
				ResetTime: p.limiter.ResetTime(name),
			})
		}
	}
	return st
}

// HealthCheck derives overall health from rate-limit and breaker state:
// healthy when every stage has an admissible provider, degraded when one or
// two do, unhealthy when none do. No network calls are made.
func (p *Pipeline) HealthCheck() Health {
	h := Health{
		Categories: map[string]bool{
			StageRecognition: p.recognition.Admissible() > 0,
			StageLyrics:      p.lyrics.Admissible() > 0,
			StageTranslation: p.translation.Admissible() > 0,
		},
	}

	available := 0
	for _, stage := range []string{StageRecognition, StageLyrics, StageTranslation} {
		if h.Categories[stage] {
			available++
			continue
		}
		h.Details = append(h.Details, fmt.Sprintf("no admissible provider for %s", stage))
	}

	switch available {
	case 3:
		h.Status = HealthHealthy
	case 0:
		h.Status = HealthUnhealthy
	default:
		h.Status = HealthDegraded
	}
	return h
}
