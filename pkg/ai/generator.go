package ai

import (
	"context"

	"github.com/pkg/errors"
)

// GenerateParams are the fixed decoding parameters for one generation call.
type GenerateParams struct {
	MaxOutputTokens int
	Temperature     float64
	TopP            float64
}

// Generator produces one completion for a fully composed prompt. The backend
// is unreliable; callers decide how a failure surfaces.
type Generator interface {
	Generate(ctx context.Context, prompt string, params GenerateParams) (string, error)
}

// ErrDisabled is returned by a generator whose credentials were not
// configured at startup.
var ErrDisabled = errors.New("generative language service is disabled: missing credentials")

// DisabledGenerator fails every call. It stands in for a real backend when
// configuration is missing so the process can still start.
type DisabledGenerator struct{}

func (DisabledGenerator) Generate(ctx context.Context, prompt string, params GenerateParams) (string, error) {
	return "", ErrDisabled
}
