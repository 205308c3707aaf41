package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/internal/routing"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/tasks/domain/types"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/authz"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/httperr"
)

const actorTokenIssuer = "paralegal-rules"

// ActorClaims binds a user (the subject) to a team and a role.
type ActorClaims struct {
	jwt.RegisteredClaims
	TeamID string `json:"team_id"`
	Role   string `json:"role"`
}

type actorCtxKey struct{}

func withActorContext(ctx context.Context, a types.Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, a)
}

func currentActor(ctx context.Context) (types.Actor, bool) {
	a, ok := ctx.Value(actorCtxKey{}).(types.Actor)
	return a, ok
}

// IssueActorToken signs an HS256 actor token valid for ttl from now.
func IssueActorToken(secret []byte, actor types.Actor, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("server: actor token secret is empty")
	}
	if !authz.KnownRole(actor.Role) {
		return "", fmt.Errorf("server: unknown role %q", actor.Role)
	}
	claims := ActorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    actorTokenIssuer,
			Subject:   actor.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TeamID: actor.TeamID,
		Role:   actor.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseActorToken(secret []byte, tokenStr string, now func() time.Time) (types.Actor, error) {
	claims := &ActorClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(actorTokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		return types.Actor{}, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return types.Actor{}, errors.New("invalid token")
	}
	if claims.Subject == "" || claims.TeamID == "" {
		return types.Actor{}, errors.New("token subject and team are required")
	}
	if !authz.KnownRole(claims.Role) {
		return types.Actor{}, fmt.Errorf("token role %q is unknown", claims.Role)
	}
	return types.Actor{UserID: claims.Subject, TeamID: claims.TeamID, Role: claims.Role}, nil
}

// withActor authenticates tenant_api routes with a Bearer actor token. Other classes pass through.
// An empty secret fails closed.
func withActor(classifier *routing.Classifier, secret []byte, now func() time.Time, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if classifier.Classify(r.URL.Path) != routing.RouteClassTenantAPI {
			next.ServeHTTP(w, r)
			return
		}
		scheme, tokenStr, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || scheme != "Bearer" || strings.TrimSpace(tokenStr) == "" {
			httperr.Write(w, r, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
			return
		}
		if len(secret) == 0 {
			httperr.Write(w, r, http.StatusUnauthorized, "unauthenticated", "authentication not configured")
			return
		}
		actor, err := parseActorToken(secret, strings.TrimSpace(tokenStr), now)
		if err != nil {
			httperr.Write(w, r, http.StatusUnauthorized, "unauthenticated", "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(withActorContext(r.Context(), actor)))
	})
}
