// Package gate authenticates inbound requests.
//
// Every request walks an ordered pipeline of named stages and stops at the
// first rejection:
//
//	public -> rate -> extract -> decode -> blacklist -> attach
//
// A public path leaves the pipeline immediately with no identity attached.
// Store failures in the rate or blacklist stage reject the request; the gate
// never lets a request through because it could not confirm it was allowed.
package gate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/hearth/internal/auth/ratelimit"
	"github.com/aussiebroadwan/hearth/pkg/httpx"
	"github.com/aussiebroadwan/hearth/pkg/jwtx"
	"github.com/aussiebroadwan/hearth/pkg/slogx"
)

// Stage names, in pipeline order.
const (
	StagePublic    = "public"
	StageRate      = "rate"
	StageExtract   = "extract"
	StageDecode    = "decode"
	StageBlacklist = "blacklist"
	StageAttach    = "attach"
)

// Reason is the stable, machine-readable cause of a rejection.
type Reason string

const (
	ReasonRateLimited         Reason = "rate_limited"
	ReasonMissingCredential   Reason = "missing_credential"
	ReasonMalformedCredential Reason = "malformed_credential"
	ReasonExpiredCredential   Reason = "expired_credential"
	ReasonBadSignature        Reason = "bad_signature"
	ReasonRevokedCredential   Reason = "revoked_credential"
	ReasonStoreUnavailable    Reason = "store_unavailable"
)

const defaultStoreTimeout = 2 * time.Second

// Decoder verifies an access credential.
type Decoder interface {
	Decode(raw string) (jwtx.AccessCredential, error)
}

// RevocationChecker reports whether a token id has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Gate holds the shared collaborators. It keeps no per-request state and is
// safe for concurrent use.
type Gate struct {
	Policy    Policy
	Limiter   *ratelimit.Limiter // nil disables the rate stage
	RateKey   httpx.KeyExtractor // nil means httpx.IPKeyExtractor
	Codec     Decoder
	Blacklist RevocationChecker

	// StoreTimeout bounds each call to the limiter or blacklist.
	StoreTimeout time.Duration
}

// Rejection describes why the pipeline stopped.
type Rejection struct {
	Stage      string
	Reason     Reason
	RetryAfter time.Duration
	Err        error // for logs only, never written to the response
}

func (r *Rejection) Error() string {
	if r.Err == nil {
		return "gate: " + r.Stage + ": " + string(r.Reason)
	}
	return "gate: " + r.Stage + ": " + string(r.Reason) + ": " + r.Err.Error()
}

func (r *Rejection) Unwrap() error { return r.Err }

// Result is the outcome of a request that made it through the pipeline.
type Result struct {
	Public   bool
	Identity httpx.Identity
	Limit    *ratelimit.Decision
}

type request struct {
	r     *http.Request
	res   Result
	token string
	cred  jwtx.AccessCredential
	done  bool
}

type stage struct {
	name string
	run  func(g *Gate, req *request) *Rejection
}

var pipeline = []stage{
	{StagePublic, (*Gate).public},
	{StageRate, (*Gate).rate},
	{StageExtract, (*Gate).extract},
	{StageDecode, (*Gate).decode},
	{StageBlacklist, (*Gate).blacklist},
	{StageAttach, (*Gate).attach},
}

// Evaluate runs the pipeline for r.
func (g *Gate) Evaluate(r *http.Request) (Result, *Rejection) {
	req := &request{r: r}
	for _, s := range pipeline {
		if rej := s.run(g, req); rej != nil {
			rej.Stage = s.name
			return req.res, rej
		}
		if req.done {
			break
		}
	}
	return req.res, nil
}

// Middleware authenticates every request before next runs. Accepted requests
// carry their identity in the context via httpx.WithIdentity.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, rej := g.Evaluate(r)
		if res.Limit != nil {
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(max(res.Limit.Limit-res.Limit.Count, 0), 10))
			w.Header().Set("X-RateLimit-Window", g.Limiter.Window().String())
		}
		if rej != nil {
			g.reject(w, r, rej)
			return
		}
		if res.Public {
			next.ServeHTTP(w, r)
			return
		}

		ctx := httpx.WithIdentity(r.Context(), res.Identity)
		ctx = slogx.With(ctx,
			slog.Int64("subject_id", res.Identity.SubjectID),
			slog.String("role", res.Identity.Role),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Gate) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := g.StoreTimeout
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (g *Gate) public(req *request) *Rejection {
	if g.Policy.IsPublic(req.r.URL.Path) {
		req.res.Public = true
		req.done = true
	}
	return nil
}

func (g *Gate) rate(req *request) *Rejection {
	if g.Limiter == nil {
		return nil
	}

	keyFn := g.RateKey
	if keyFn == nil {
		keyFn = httpx.IPKeyExtractor
	}
	key := keyFn(req.r)

	ctx, cancel := g.storeCtx(req.r.Context())
	defer cancel()

	d, err := g.Limiter.Allow(ctx, "gate:"+key)
	if err != nil {
		return &Rejection{Reason: ReasonStoreUnavailable, Err: err}
	}
	req.res.Limit = &d
	if !d.Allowed {
		return &Rejection{Reason: ReasonRateLimited, RetryAfter: d.RetryAfter}
	}
	return nil
}

func (g *Gate) extract(req *request) *Rejection {
	token, err := httpx.BearerToken(req.r)
	switch {
	case errors.Is(err, httpx.ErrNoCredential):
		return &Rejection{Reason: ReasonMissingCredential}
	case err != nil:
		return &Rejection{Reason: ReasonMalformedCredential, Err: err}
	}
	req.token = token
	return nil
}

func (g *Gate) decode(req *request) *Rejection {
	cred, err := g.Codec.Decode(req.token)
	if err == nil {
		req.cred = cred
		return nil
	}

	var de *jwtx.DecodeError
	if !errors.As(err, &de) {
		return &Rejection{Reason: ReasonMalformedCredential, Err: err}
	}
	switch de.Kind {
	case jwtx.Expired:
		return &Rejection{Reason: ReasonExpiredCredential, Err: err}
	case jwtx.BadSignature:
		return &Rejection{Reason: ReasonBadSignature, Err: err}
	default:
		return &Rejection{Reason: ReasonMalformedCredential, Err: err}
	}
}

func (g *Gate) blacklist(req *request) *Rejection {
	ctx, cancel := g.storeCtx(req.r.Context())
	defer cancel()

	revoked, err := g.Blacklist.IsRevoked(ctx, req.cred.TokenID)
	if err != nil {
		return &Rejection{Reason: ReasonStoreUnavailable, Err: err}
	}
	if revoked {
		return &Rejection{Reason: ReasonRevokedCredential}
	}
	return nil
}

func (g *Gate) attach(req *request) *Rejection {
	req.res.Identity = httpx.Identity{
		SubjectID: req.cred.SubjectID,
		Role:      req.cred.Role,
		TokenID:   req.cred.TokenID,
		ExpiresAt: req.cred.ExpiresAt,
	}
	return nil
}

func (g *Gate) reject(w http.ResponseWriter, r *http.Request, rej *Rejection) {
	ctx := r.Context()
	attrs := []any{
		slog.String("gate_stage", rej.Stage),
		slog.String("reason", string(rej.Reason)),
		slog.String("path", r.URL.Path),
	}
	if rej.Err != nil {
		attrs = append(attrs, slog.Any("error", rej.Err))
	}

	switch rej.Reason {
	case ReasonBadSignature:
		slogx.Security(ctx, string(rej.Reason), attrs...)
	case ReasonStoreUnavailable:
		slogx.FromContext(ctx).Error("request rejected", attrs...)
	default:
		slogx.FromContext(ctx).Info("request rejected", attrs...)
	}

	switch rej.Reason {
	case ReasonMissingCredential:
		httpx.WriteBearerError(w, http.StatusUnauthorized, "invalid_token", "authentication required")
	case ReasonMalformedCredential:
		httpx.WriteBearerError(w, http.StatusUnauthorized, "invalid_token", "the access token is malformed")
	case ReasonExpiredCredential:
		httpx.WriteBearerError(w, http.StatusUnauthorized, "invalid_token", "the access token has expired")
	case ReasonBadSignature:
		writeForbidden(w, "the access token is not valid")
	case ReasonRevokedCredential:
		writeForbidden(w, "the access token has been revoked")
	case ReasonRateLimited:
		secs := httpx.SetRetryAfter(w, rej.RetryAfter)
		httpx.WriteJSON(w, http.StatusTooManyRequests, map[string]string{
			"error":             string(ReasonRateLimited),
			"error_description": "Too many requests. Please try again in " + strconv.Itoa(secs) + " seconds.",
		})
	default:
		httpx.SetRetryAfter(w, time.Second)
		httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":             "temporarily_unavailable",
			"error_description": "authentication is temporarily unavailable",
		})
	}
}

func writeForbidden(w http.ResponseWriter, desc string) {
	httpx.WriteJSON(w, http.StatusForbidden, map[string]string{
		"error":             "forbidden",
		"error_description": desc,
	})
}
