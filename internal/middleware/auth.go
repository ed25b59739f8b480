package middleware

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/expensekey/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// GroupIDKey is the context key for the group the caller's token is scoped to.
	GroupIDKey contextKey = "group_id"
	// MemberIDKey is the context key for the authenticated member ID.
	MemberIDKey contextKey = "member_id"
)

// GetGroupID extracts the group ID from the context.
// Returns empty string if not found.
func GetGroupID(ctx context.Context) string {
	groupID, _ := ctx.Value(GroupIDKey).(string)
	return groupID
}

// GetMemberID extracts the member ID from the context.
// Returns empty string if not found.
func GetMemberID(ctx context.Context) string {
	memberID, _ := ctx.Value(MemberIDKey).(string)
	return memberID
}

// WithIdentity returns ctx carrying the group and member.
func WithIdentity(ctx context.Context, groupID, memberID string) context.Context {
	ctx = context.WithValue(ctx, GroupIDKey, groupID)
	return context.WithValue(ctx, MemberIDKey, memberID)
}

// RequireAuth returns a middleware that validates JWT tokens and requires authentication.
// It extracts the token from the Authorization header, validates it, and adds
// the group ID and member ID to the request context. Procedures listed in public
// are let through without a token.
func RequireAuth(jwtManager *auth.JWTManager, public map[string]bool) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if public[req.Spec().Procedure] {
				return next(ctx, req)
			}

			tokenString, err := bearerToken(req.Header().Get("Authorization"))
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			claims, err := jwtManager.Validate(tokenString)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			return next(WithIdentity(ctx, claims.GroupID, claims.MemberID), req)
		}
	}
}

// bearerToken parses an "Authorization: Bearer <token>" header value.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", auth.ErrMissingToken
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", auth.ErrInvalidToken
	}
	return parts[1], nil
}
