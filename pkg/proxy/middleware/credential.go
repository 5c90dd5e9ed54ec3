package middleware

import (
	"net/http"
	"strings"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/proxy/types"
	"mercator-hq/relay/pkg/telemetry/logging"
)

// KeyMode names how upstream credentials are chosen.
const (
	KeyModeStatic  = "static"
	KeyModeDynamic = "dynamic"
)

// upstreamKeyPrefix is the format every OpenAI secret key shares.
const upstreamKeyPrefix = "sk-"

// CredentialPolicy decides which upstream credential serves a caller.
//
// In static mode one configured upstream key serves every caller. In
// dynamic mode the caller's own key is relayed upstream. Either way the
// caller must present some key, and when a client key is configured it is
// checked: in static mode the caller's key must equal it, in dynamic mode
// it must look like an upstream key.
type CredentialPolicy struct {
	upstreamKey string
	clientKey   string
}

// NewCredentialPolicy builds a policy from configuration.
func NewCredentialPolicy(upstream config.UpstreamConfig, auth config.AuthConfig) *CredentialPolicy {
	return &CredentialPolicy{
		upstreamKey: upstream.APIKey,
		clientKey:   auth.ClientAPIKey,
	}
}

// Static reports whether a configured upstream key serves every caller.
func (p *CredentialPolicy) Static() bool {
	return p.upstreamKey != ""
}

// Mode returns KeyModeStatic or KeyModeDynamic.
func (p *CredentialPolicy) Mode() string {
	if p.Static() {
		return KeyModeStatic
	}
	return KeyModeDynamic
}

// ClientValidation reports whether caller keys are checked against a
// configured client key.
func (p *CredentialPolicy) ClientValidation() bool {
	return p.clientKey != ""
}

// UpstreamKeyValid reports whether the configured upstream key looks usable.
// Dynamic mode has nothing to check and is always valid.
func (p *CredentialPolicy) UpstreamKeyValid() bool {
	if !p.Static() {
		return true
	}
	return strings.HasPrefix(p.upstreamKey, upstreamKeyPrefix)
}

// Allow reports whether clientKey may use the relay.
func (p *CredentialPolicy) Allow(clientKey string) bool {
	if clientKey == "" {
		return false
	}
	if !p.ClientValidation() {
		return true
	}
	if !p.Static() {
		return strings.HasPrefix(clientKey, upstreamKeyPrefix)
	}
	return clientKey == p.clientKey
}

// Resolve returns the upstream credential for clientKey, or false when the
// caller is rejected.
func (p *CredentialPolicy) Resolve(clientKey string) (string, bool) {
	if !p.Allow(clientKey) {
		return "", false
	}
	if p.Static() {
		return p.upstreamKey, true
	}
	return clientKey, true
}

// ProbeCredential returns the credential for probes the relay runs on its
// own behalf. Static mode always uses the configured key; dynamic mode
// needs a caller key the policy accepts.
func (p *CredentialPolicy) ProbeCredential(clientKey string) (string, bool) {
	if p.Static() {
		return p.upstreamKey, true
	}
	return p.Resolve(clientKey)
}

// CredentialMiddleware rejects callers the policy does not allow with 401
// and stores the resolved upstream credential on the request context.
//
// Example usage:
//
//	handler = CredentialMiddleware(policy)(chatHandler)
func CredentialMiddleware(policy *CredentialPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			credential, ok := policy.Resolve(proxy.ExtractAPIKey(r))
			if !ok {
				logging.FromContext(ctx).WarnContext(ctx, "invalid API key provided by client",
					"path", r.URL.Path,
				)
				errResp := types.NewAuthenticationError("Invalid API key. Please provide a valid API key.")
				if err := proxy.WriteErrorResponse(w, errResp); err != nil {
					logging.FromContext(ctx).ErrorContext(ctx, "failed to write error response", "error", err)
				}
				return
			}

			ctx = WithCredential(ctx, credential)
			ctx = logging.WithKeyPrefix(ctx, credential)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
