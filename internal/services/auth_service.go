package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinic-qr-tracker/configs"
	"clinic-qr-tracker/internal/models"
	"clinic-qr-tracker/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService authenticates tenant operators. Visitors are anonymous and
// never touch this path.
type AuthService struct {
	operators repository.OperatorRepository
	log       *zap.Logger
}

func NewAuthService(operators repository.OperatorRepository, log *zap.Logger) *AuthService {
	return &AuthService{operators: operators, log: log}
}

type Claims struct {
	OperatorID string `json:"operator_id"`
	TenantID   string `json:"tenant_id"`
	jwt.RegisteredClaims
}

func (s *AuthService) GenerateToken(operator *models.Operator) (string, error) {
	expirationTime := time.Now().Add(configs.AppConfig.JWTTTL)

	claims := &Claims{
		OperatorID: operator.OperatorID,
		TenantID:   operator.TenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "clinic-qr-tracker",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(configs.AppConfig.JWTSecret))
}

func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(configs.AppConfig.JWTSecret), nil
	})

	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// Login verifies operator credentials and issues a token. Unknown email and
// wrong password collapse into one error so the response does not confirm
// account existence.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Operator, string, error) {
	operator, err := s.operators.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.GenerateToken(operator)
	if err != nil {
		return nil, "", err
	}

	return operator, token, nil
}

// RequestPasswordReset issues a reset token for a known operator. The caller
// always gets a success-shaped answer; unknown emails are a silent no-op so
// the endpoint cannot be used for account enumeration.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) {
	operator, err := s.operators.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("Operator lookup failed for password reset", zap.Error(err))
		}
		return
	}

	token := &models.PasswordResetToken{
		OperatorID: operator.OperatorID,
		Token:      uuid.New().String(),
		ExpiresAt:  time.Now().Add(configs.AppConfig.PasswordResetTTL),
	}

	if err := s.operators.CreateResetToken(ctx, token); err != nil {
		s.log.Error("Password reset token write failed", zap.String("operator_id", operator.OperatorID), zap.Error(err))
		return
	}

	// Delivery is the mailer's job; the token is only logged at debug here.
	s.log.Debug("Password reset token issued", zap.String("operator_id", operator.OperatorID))
}

func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}
