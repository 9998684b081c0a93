package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"
	"golang.org/x/crypto/bcrypt"

	"internhub/internal/dto"
	"internhub/internal/model"
	"internhub/internal/repo"
)

const (
	issuer       = "internhub"
	bearerPrefix = "Bearer "

	adminContextKey   = "auth_admin"
	sessionContextKey = "auth_session"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Claims are the bearer token claims. The token alone is never enough to pass
// the guard: an active session row must also exist for it.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type Guard struct {
	repo       repo.Repository
	log        *zerolog.Logger
	secret     []byte
	sessionTTL time.Duration
	now        func() time.Time
}

func NewGuard(r repo.Repository, log *zerolog.Logger, secret string, sessionTTL time.Duration) (*Guard, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth secret is required")
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &Guard{
		repo:       r,
		log:        log,
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		now:        time.Now,
	}, nil
}

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Authenticate verifies admin credentials against the stored bcrypt hash.
func (g *Guard) Authenticate(ctx context.Context, email, password string) (*model.AdminUser, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	admin, err := g.repo.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrAdminNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return admin, nil
}

// IssueSession mints a signed token and the parallel session record. Both
// carry the same expiry; the session row is what logout invalidates.
func (g *Guard) IssueSession(ctx context.Context, admin *model.AdminUser, ip, userAgent string) (string, *model.AdminSession, error) {
	now := g.now()
	expiresAt := now.Add(g.sessionTTL)

	claims := Claims{
		Email: admin.Email,
		Role:  admin.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   admin.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	session := &model.AdminSession{
		ID:           uuid.NewString(),
		AdminUserID:  admin.ID,
		SessionToken: token,
		IsActive:     true,
		ExpiresAt:    expiresAt,
		IPAddress:    ip,
		UserAgent:    userAgent,
	}
	if err := g.repo.CreateSession(ctx, session); err != nil {
		return "", nil, err
	}
	return token, session, nil
}

// VerifyToken checks signature, issuer and expiry of the bearer token.
func (g *Guard) VerifyToken(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return g.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(g.now))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Middleware gates admin endpoints: the token must verify AND an active,
// unexpired session row must exist for it. There is no other path in.
func (g *Guard) Middleware() ginext.HandlerFunc {
	return func(c *ginext.Context) {
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			dto.UnauthorizedError(c, dto.MsgNoToken)
			c.Abort()
			return
		}

		claims, err := g.VerifyToken(token)
		if err != nil {
			dto.UnauthorizedError(c, dto.MsgInvalidSession)
			c.Abort()
			return
		}

		session, err := g.repo.GetActiveSessionByToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, repo.ErrSessionNotFound) {
				dto.UnauthorizedError(c, dto.MsgInvalidSession)
			} else {
				g.log.Error().Err(err).Msg("session lookup failed")
				dto.InternalServerError(c)
			}
			c.Abort()
			return
		}

		admin, err := g.repo.GetAdminByID(c.Request.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, repo.ErrAdminNotFound) {
				dto.UnauthorizedError(c, dto.MsgInvalidSession)
			} else {
				g.log.Error().Err(err).Msg("admin lookup failed")
				dto.InternalServerError(c)
			}
			c.Abort()
			return
		}

		c.Set(adminContextKey, admin)
		c.Set(sessionContextKey, session)
		c.Next()
	}
}

func AdminFrom(c *ginext.Context) (*model.AdminUser, bool) {
	v, ok := c.Get(adminContextKey)
	if !ok {
		return nil, false
	}
	admin, ok := v.(*model.AdminUser)
	return admin, ok
}

func SessionFrom(c *ginext.Context) (*model.AdminSession, bool) {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil, false
	}
	session, ok := v.(*model.AdminSession)
	return session, ok
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
