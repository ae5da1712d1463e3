// Package main provides authentication for the mydb TCP server.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthConfig configures server authentication.
type AuthConfig struct {
	// Enabled requires every connection to send AUTH before any query.
	Enabled bool

	// JWTSecret is the shared secret for HS256 JWT validation.
	JWTSecret string

	// Issuer is the expected "iss" claim in JWTs.
	Issuer string

	// Audience is the expected "aud" claim in JWTs (optional).
	Audience string

	// NameClaim is the JWT claim for user's name (default: "name").
	NameClaim string

	// EmailClaim is the JWT claim for user's email (default: "email").
	EmailClaim string
}

// Identity is the authenticated principal of a connection.
type Identity struct {
	Name  string
	Email string
}

func (id Identity) String() string {
	return fmt.Sprintf("%s <%s>", id.Name, id.Email)
}

// ConnectionState tracks per-connection authentication state.
type ConnectionState struct {
	id            string
	identity      *Identity
	authenticated bool
	tokenExpiry   time.Time
}

// IsAuthenticated reports whether the connection holds an unexpired token.
func (cs *ConnectionState) IsAuthenticated() bool {
	if !cs.authenticated {
		return false
	}
	return cs.tokenExpiry.IsZero() || time.Now().Before(cs.tokenExpiry)
}

// Identity returns the connection's identity, or nil if not authenticated.
func (cs *ConnectionState) Identity() *Identity {
	return cs.identity
}

type authResult struct {
	identity  Identity
	expiresAt time.Time
	err       error
}

// validateJWT validates a JWT token and extracts identity claims.
func (s *Server) validateJWT(tokenString string) authResult {
	if s.authConfig == nil || s.authConfig.JWTSecret == "" {
		return authResult{err: errors.New("authentication not configured")}
	}

	nameClaim := s.authConfig.NameClaim
	if nameClaim == "" {
		nameClaim = "name"
	}
	emailClaim := s.authConfig.EmailClaim
	if emailClaim == "" {
		emailClaim = "email"
	}

	var opts []jwt.ParserOption
	opts = append(opts, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if s.authConfig.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.authConfig.Issuer))
	}
	if s.authConfig.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.authConfig.Audience))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.authConfig.JWTSecret), nil
	}, opts...)
	if err != nil {
		return authResult{err: fmt.Errorf("invalid token: %w", err)}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return authResult{err: errors.New("invalid token claims")}
	}

	name, _ := claims[nameClaim].(string)
	email, _ := claims[emailClaim].(string)
	if name == "" && email == "" {
		return authResult{err: fmt.Errorf("token missing identity claims (%s or %s)", nameClaim, emailClaim)}
	}

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	return authResult{
		identity:  Identity{Name: name, Email: email},
		expiresAt: expiresAt,
	}
}

// parseAuthCommand parses an AUTH command and returns the auth type and token.
// Supported formats:
//   - AUTH JWT <token>
func parseAuthCommand(line string) (authType, token string, err error) {
	line = strings.TrimSpace(line)

	if !isAuthCommand(line) {
		return "", "", errors.New("not an AUTH command")
	}

	parts := strings.Fields(line)
	if len(parts) < 3 {
		return "", "", errors.New("invalid AUTH command: expected AUTH <type> <credentials>")
	}

	authType = strings.ToUpper(parts[1])
	switch authType {
	case "JWT":
		return authType, parts[2], nil
	default:
		return "", "", fmt.Errorf("unsupported auth type: %s", authType)
	}
}

func isAuthCommand(line string) bool {
	return len(line) >= 5 && strings.EqualFold(line[:5], "AUTH ")
}

// handleAuth processes an AUTH command and returns the response.
func (s *Server) handleAuth(line string, state *ConnectionState) Response {
	_, token, err := parseAuthCommand(line)
	if err != nil {
		return ErrorResponse(TypeAuth, err)
	}

	result := s.validateJWT(token)
	if result.err != nil {
		return ErrorResponse(TypeAuth, result.err)
	}

	state.identity = &result.identity
	state.authenticated = true
	state.tokenExpiry = result.expiresAt

	ar := AuthResponse{
		Authenticated: true,
		Identity:      result.identity.String(),
	}
	if !result.expiresAt.IsZero() {
		ar.ExpiresIn = int(time.Until(result.expiresAt).Seconds())
	}

	data, _ := json.Marshal(ar)
	return Response{
		Success: true,
		Type:    TypeAuth,
		Result:  data,
	}
}
