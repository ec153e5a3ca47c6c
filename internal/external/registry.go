package external

import (
	"log/slog"
	"net/http"

	"forestwatch/internal/analysis"
	"forestwatch/internal/config"
)

// ClientRegistry bundles the collaborator clients a run needs. Callers
// receive interfaces; whether they talk to real services or stubs is
// decided here and nowhere else.
type ClientRegistry struct {
	Imagery    analysis.ImageryGateway
	Vectorizer analysis.Vectorizer
}

// RegistryOption overrides a registry entry, primarily for tests.
type RegistryOption func(*ClientRegistry)

// WithImageryGateway overrides the imagery gateway.
func WithImageryGateway(g analysis.ImageryGateway) RegistryOption {
	return func(r *ClientRegistry) {
		r.Imagery = g
	}
}

// WithVectorizer overrides the vectorizer.
func WithVectorizer(v analysis.Vectorizer) RegistryOption {
	return func(r *ClientRegistry) {
		r.Vectorizer = v
	}
}

// NewClientRegistry builds the collaborator clients from config. Each
// provider selects stub or production independently, and APP_ENV=local
// forces stubs for both so a checkout runs without credentials.
func NewClientRegistry(cfg *config.Config, logger *slog.Logger, opts ...RegistryOption) *ClientRegistry {
	useStubs := cfg.Environment == "local"
	stubLogger := logger.With("mode", "stub")

	reg := &ClientRegistry{}

	if useStubs || cfg.Imagery.Provider == "stub" {
		reg.Imagery = NewStubImageryGateway(stubLogger)
	} else {
		reg.Imagery = NewCopernicusClient(
			&http.Client{Timeout: cfg.Imagery.Timeout},
			CopernicusConfig{
				ClientID:        cfg.Imagery.ClientID,
				ClientSecret:    cfg.Imagery.ClientSecret.Unmask(),
				TokenURL:        cfg.Imagery.TokenURL,
				BaseURL:         cfg.Imagery.BaseURL,
				Collection:      cfg.Imagery.Collection,
				ScaleMeters:     cfg.Analysis.ScaleMeters,
				TileConcurrency: cfg.Imagery.TileConcurrency,
				Logger:          logger,
			},
		)
	}

	if useStubs || cfg.Vectorizer.Provider == "stub" {
		reg.Vectorizer = NewStubVectorizer(stubLogger)
	} else {
		reg.Vectorizer = NewVectorizerClient(
			&http.Client{Timeout: cfg.Vectorizer.Timeout},
			VectorizerConfig{
				BaseURL: cfg.Vectorizer.BaseURL,
				APIKey:  cfg.Vectorizer.APIKey.Unmask(),
				Logger:  logger,
			},
		)
	}

	for _, opt := range opts {
		opt(reg)
	}
	return reg
}
