package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/usersvc/backend/internal/metrics"
	"github.com/usersvc/backend/internal/model"
	"github.com/usersvc/backend/internal/security"
)

const (
	principalKey = "principal"
	bearerPrefix = "Bearer "

	outcomeAllowed    = "allowed"
	outcomeNotAllowed = "not allowed"
)

// principalSource turns an access token into a request identity.
type principalSource interface {
	Principal(token string) (model.Principal, error)
}

type GateConfig struct {
	PublicPrefixes   []string
	RegistrationPath string
}

// Decision is the gate's verdict for one request. Principal is nil unless a
// valid access token was presented.
type Decision struct {
	Outcome   string
	Reason    string
	Principal *model.Principal
	// Token is the masked token, set only when a presented token was rejected.
	Token string
}

// Gate populates or withholds the request principal. It never rejects a
// request itself; RequireAuth does that per route.
type Gate struct {
	auth             principalSource
	publicPrefixes   []string
	registrationPath string
	logger           *slog.Logger
	metrics          *metrics.Metrics
}

func NewGate(auth principalSource, cfg GateConfig, logger *slog.Logger, m *metrics.Metrics) *Gate {
	prefixes := make([]string, 0, len(cfg.PublicPrefixes))
	for _, prefix := range cfg.PublicPrefixes {
		if trimmed := strings.TrimSpace(prefix); trimmed != "" {
			prefixes = append(prefixes, trimmed)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		auth:             auth,
		publicPrefixes:   prefixes,
		registrationPath: strings.TrimSuffix(strings.TrimSpace(cfg.RegistrationPath), "/"),
		logger:           logger,
		metrics:          m,
	}
}

// Decide evaluates, in order: public prefix, registration, bearer token.
func (g *Gate) Decide(r *http.Request) Decision {
	path := r.URL.Path
	for _, prefix := range g.publicPrefixes {
		if matchesPrefix(path, prefix) {
			return Decision{Outcome: outcomeAllowed, Reason: "public path"}
		}
	}

	if g.registrationPath != "" && r.Method == http.MethodPost && strings.TrimSuffix(path, "/") == g.registrationPath {
		return Decision{Outcome: outcomeAllowed, Reason: "registration"}
	}

	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return Decision{Outcome: outcomeNotAllowed, Reason: "missing bearer token"}
	}

	principal, err := g.auth.Principal(token)
	if err != nil || !principal.Authenticated {
		return Decision{Outcome: outcomeNotAllowed, Reason: "invalid token", Token: security.Mask(token)}
	}
	return Decision{Outcome: outcomeAllowed, Reason: "authenticated", Principal: &principal}
}

// Middleware applies Decide to every request, logs one audit line and
// forwards the request whatever the outcome.
func (g *Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := g.Decide(c.Request)

		attrs := []any{
			"ip", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"outcome", decision.Outcome,
			"reason", decision.Reason,
		}
		if decision.Token != "" {
			attrs = append(attrs, "token", decision.Token)
		}
		g.logger.Info("request", attrs...)
		g.metrics.GateDecision(decision.Outcome, decision.Reason)

		if decision.Principal != nil {
			c.Set(principalKey, *decision.Principal)
		}
		c.Next()
	}
}

// RequireAuth answers 401 unless the gate attached an authenticated principal.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := PrincipalFrom(c); !ok {
			writeStatus(c, http.StatusUnauthorized, "full authentication is required to access this resource")
			return
		}
		c.Next()
	}
}

func PrincipalFrom(c *gin.Context) (model.Principal, bool) {
	value, ok := c.Get(principalKey)
	if !ok {
		return model.Principal{}, false
	}
	principal, ok := value.(model.Principal)
	return principal, ok && principal.Authenticated
}

// matchesPrefix reports whether path is under prefix on a segment boundary.
// A prefix ending in "/" matches anything below it; otherwise the path must
// equal the prefix or continue with "/".
func matchesPrefix(path, prefix string) bool {
	if strings.HasSuffix(prefix, "/") {
		return strings.HasPrefix(path, prefix)
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// bearerToken extracts the token from an Authorization header. Anything not
// literally prefixed "Bearer " counts as absent.
func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}
