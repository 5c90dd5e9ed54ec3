package proxy

import (
	"strings"
	"sync/atomic"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/providers"
)

// ModelMapper rewrites requested model names and clamps max_tokens. The
// mapping can be swapped at runtime when configuration reloads.
type ModelMapper struct {
	models atomic.Pointer[config.ModelsConfig]
}

// NewModelMapper creates a mapper for cfg.
func NewModelMapper(cfg config.ModelsConfig) *ModelMapper {
	m := &ModelMapper{}
	m.Update(cfg)
	return m
}

// Update replaces the mapping.
func (m *ModelMapper) Update(cfg config.ModelsConfig) {
	m.models.Store(&cfg)
}

// Config returns the current mapping.
func (m *ModelMapper) Config() config.ModelsConfig {
	return *m.models.Load()
}

// Map returns the upstream model for a requested one. Names containing
// "haiku" go to the small model, "sonnet" to the middle model and "opus" to
// the big model; anything else passes through.
func (m *ModelMapper) Map(model string) string {
	cfg := m.models.Load()
	lower := strings.ToLower(model)

	switch {
	case strings.Contains(lower, "haiku"):
		return cfg.Small
	case strings.Contains(lower, "sonnet"):
		return cfg.MiddleModel()
	case strings.Contains(lower, "opus"):
		return cfg.Big
	default:
		return model
	}
}

// ClampMaxTokens bounds n into [min, max]. Zero means unset and is kept.
func (m *ModelMapper) ClampMaxTokens(n int) int {
	if n <= 0 {
		return n
	}
	cfg := m.models.Load()
	if cfg.MinTokensLimit > 0 {
		n = max(n, cfg.MinTokensLimit)
	}
	if cfg.MaxTokensLimit > 0 {
		n = min(n, cfg.MaxTokensLimit)
	}
	return n
}

// Apply maps the model and clamps both token limit fields of req.
func (m *ModelMapper) Apply(req *providers.Request) {
	req.Model = m.Map(req.Model)
	req.MaxTokens = m.ClampMaxTokens(req.MaxTokens)
	req.MaxCompletionTokens = m.ClampMaxTokens(req.MaxCompletionTokens)
}
