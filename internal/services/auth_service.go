package services

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mmkdev/account-factory/internal/config"
	"github.com/mmkdev/account-factory/internal/dto"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidAdminToken = errors.New("invalid admin token")

// AuthService exchanges the operator's admin token for a short-lived JWT
// that guards destructive endpoints. ADMIN_TOKEN_HASH (bcrypt) takes
// precedence over the plaintext ADMIN_TOKEN comparison.
type AuthService struct {
	cfg *config.Config
}

func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{cfg: cfg}
}

func (s *AuthService) Login(req *dto.LoginRequest) (*dto.LoginResponse, error) {
	if req.Token == "" {
		return nil, ErrInvalidAdminToken
	}

	if s.cfg.AdminTokenHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminTokenHash), []byte(req.Token)); err != nil {
			return nil, ErrInvalidAdminToken
		}
	} else if s.cfg.AdminToken == "" ||
		subtle.ConstantTimeCompare([]byte(s.cfg.AdminToken), []byte(req.Token)) != 1 {
		return nil, ErrInvalidAdminToken
	}

	expiresAt := time.Now().Add(s.cfg.JWTExpiry)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin",
		"iat": time.Now().Unix(),
		"exp": expiresAt.Unix(),
	})

	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{Token: signed, ExpiresAt: expiresAt}, nil
}
