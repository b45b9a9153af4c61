package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"staydesk/internal/shared/config"
	"staydesk/internal/shared/middleware"
	"staydesk/pkg/logger"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("account already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrForbidden          = errors.New("forbidden")
)

type Service interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	CreateStaff(ctx context.Context, callerRole string, req *CreateStaffRequest) (*AccountResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
	ChangePassword(ctx context.Context, accountID uuid.UUID, req *ChangePasswordRequest) error
	GetAccount(ctx context.Context, accountID uuid.UUID) (*AccountResponse, error)
	ValidateToken(tokenString string) (*JWTClaims, error)
}

type service struct {
	repo   Repository
	config *config.Config
	logger *logger.Logger
	now    func() time.Time
	cost   int
}

func NewService(repo Repository, cfg *config.Config, log *logger.Logger) Service {
	return newService(repo, cfg, log, bcrypt.DefaultCost)
}

func newService(repo Repository, cfg *config.Config, log *logger.Logger, cost int) *service {
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{
		repo:   repo,
		config: cfg,
		logger: log.WithComponent("auth"),
		now:    time.Now,
		cost:   cost,
	}
}

// Register creates a guest account. Staff accounts are created through CreateStaff.
func (s *service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	account, err := s.createAccount(ctx, req, middleware.RoleGuest)
	if err != nil {
		return nil, err
	}
	return s.authResponse(account)
}

// CreateStaff creates a STAFF or ADMIN account on behalf of an admin
func (s *service) CreateStaff(ctx context.Context, callerRole string, req *CreateStaffRequest) (*AccountResponse, error) {
	if callerRole != middleware.RoleAdmin {
		return nil, ErrForbidden
	}
	if req.Role == middleware.RoleGuest || !IsValidRole(req.Role) {
		return nil, fmt.Errorf("unsupported staff role %q", req.Role)
	}

	account, err := s.createAccount(ctx, &req.RegisterRequest, req.Role)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Staff account created", "account_id", account.ID.String(), "role", account.Role)

	resp := toAccountResponse(account)
	return &resp, nil
}

func (s *service) createAccount(ctx context.Context, req *RegisterRequest, role string) (*Account, error) {
	exists, err := s.repo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAccountExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, err
	}

	account := &Account{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  string(hashedPassword),
		Role:      role,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	account, err := s.repo.GetAccountByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.authResponse(account)
}

func (s *service) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.validateToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeRefresh {
		return nil, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	// role comes from the stored account, not the old token
	account, err := s.repo.GetAccountByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.generateTokenPair(account)
}

func (s *service) ChangePassword(ctx context.Context, accountID uuid.UUID, req *ChangePasswordRequest) error {
	account, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.CurrentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.cost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, accountID, string(hashedPassword))
}

func (s *service) GetAccount(ctx context.Context, accountID uuid.UUID) (*AccountResponse, error) {
	account, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	resp := toAccountResponse(account)
	return &resp, nil
}

func (s *service) ValidateToken(tokenString string) (*JWTClaims, error) {
	return s.validateToken(tokenString)
}

func (s *service) authResponse(account *Account) (*AuthResponse, error) {
	tokens, err := s.generateTokenPair(account)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		Account:      toAccountResponse(account),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
	}, nil
}

func (s *service) generateTokenPair(account *Account) (*TokenPair, error) {
	now := s.now()

	accessToken, err := s.signToken(account, TokenTypeAccess, now, s.config.JWT.JWTExpiresIn)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.signToken(account, TokenTypeRefresh, now, s.config.JWT.RefreshExpiresIn)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.config.JWT.JWTExpiresIn.Seconds()),
	}, nil
}

func (s *service) signToken(account *Account, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	claims := JWTClaims{
		UserID: account.ID.String(),
		Email:  account.Email,
		Role:   account.Role,
		Type:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    s.config.JWT.Issuer,
			Subject:   account.ID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWT.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

func (s *service) validateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.config.JWT.Secret), nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}
