package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/d60-Lab/newsfeed/internal/apperr"
	"github.com/d60-Lab/newsfeed/internal/model"
	"github.com/d60-Lab/newsfeed/internal/repository"
)

// Claims JWT 载荷，Subject 为用户 id
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthResult 注册/登录返回
type AuthResult struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// AccountService 身份组件：注册、登录、签发与校验 token
type AccountService struct {
	users  repository.UserRepository
	secret []byte
	ttl    time.Duration
	issuer string
	cost   int
}

func NewAccountService(users repository.UserRepository, secret string, ttl time.Duration, issuer string) *AccountService {
	return &AccountService{users: users, secret: []byte(secret), ttl: ttl, issuer: issuer, cost: bcrypt.DefaultCost}
}

// WithHashCost 测试里用 bcrypt.MinCost 加速
func (s *AccountService) WithHashCost(cost int) *AccountService {
	s.cost = cost
	return s
}

func (s *AccountService) Signup(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" || email == "" {
		return nil, apperr.Invalid("username and email are required")
	}
	if len(password) < 6 {
		return nil, apperr.Invalid("password must be at least 6 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, apperr.Invalid("password: %v", err)
	}
	now := time.Now().UTC()
	u := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return nil, apperr.Conflict("username or email already taken")
		}
		return nil, err
	}
	return s.issue(u)
}

func (s *AccountService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Unauthorized("invalid username or password")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthorized("invalid username or password")
	}
	return s.issue(u)
}

func (s *AccountService) issue(u *model.User) (*AuthResult, error) {
	now := time.Now()
	exp := now.Add(s.ttl)
	claims := Claims{
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "sign token")
	}
	return &AuthResult{User: u, Token: token, ExpiresAt: exp.UTC()}, nil
}

// ParseToken 校验签名与过期时间，返回 actor id
func (s *AccountService) ParseToken(token string) (string, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperr.Unauthorized("token expired")
		}
		return "", apperr.Unauthorized("invalid token")
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", apperr.Unauthorized("invalid token")
	}
	return claims.Subject, nil
}
