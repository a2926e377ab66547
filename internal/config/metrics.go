package config

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Config validation outcomes are counted even though Load runs before the
// metric pipeline is wired; the counter binds to the global meter provider,
// so early events land in the no-op provider and cost nothing.
var configCounter = sync.OnceValue(func() metric.Int64Counter {
	counter, err := otel.Meter("storelane-auth-engine").Int64Counter("config.validation.events")
	if err != nil {
		return nil
	}
	return counter
})

func recordConfigValidationEvent(ctx context.Context, profile, outcome, errorClass string) {
	counter := configCounter()
	if counter == nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("profile", profileLabel(profile)),
		attribute.String("outcome", outcome),
		attribute.String("error_class", errorClass),
	))
}

func profileLabel(profile string) string {
	p := strings.TrimSpace(strings.ToLower(profile))
	if p == "" {
		return "unknown"
	}
	return p
}

// classifyConfigLoadError buckets startup failures by the stage that
// produced them, matching the error strings Load and Validate build.
func classifyConfigLoadError(err error) string {
	if err == nil {
		return "none"
	}
	switch msg := strings.ToLower(err.Error()); {
	case strings.Contains(msg, "validate config:"):
		return "validation"
	case strings.Contains(msg, "parse "):
		return "parse"
	default:
		return "load"
	}
}
