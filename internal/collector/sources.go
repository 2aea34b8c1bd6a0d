package collector

import (
	"fmt"

	"crypto-sentinel/internal/config"
	"crypto-sentinel/internal/provider"

	"go.opentelemetry.io/otel/trace"
)

// BuildSources turns the configured kind:target list into providers, keeping
// the configured priority order.
func BuildSources(tracer trace.Tracer, cfg *config.Config) ([]Source, error) {
	sources := make([]Source, 0, len(cfg.CandidateSources))
	for _, spec := range cfg.CandidateSources {
		switch spec.Kind {
		case "rss":
			sources = append(sources, provider.NewRSSProvider(tracer, spec.Target, cfg.Keywords, cfg.RequestTimeout))
		case "cryptocompare":
			sources = append(sources, provider.NewCryptoCompareProvider(tracer, spec.Target, cfg.Keywords, cfg.RequestTimeout))
		case "reddit":
			sources = append(sources, provider.NewRedditProvider(tracer, spec.Target, cfg.Keywords, cfg.RequestTimeout))
		default:
			return nil, fmt.Errorf("unknown post source kind %q", spec.Kind)
		}
	}
	return sources, nil
}
