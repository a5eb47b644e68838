package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"restaurant-service/internal/entity"
	"restaurant-service/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidCode        = errors.New("invalid or expired code")
)

const secondFactorCodeTTL = 5 * time.Minute

// JwtCustomClaims carries the session identity. TwoFactor flips to true only
// on a token issued after a verified one-time code; order cancellation
// requires such a token.
type JwtCustomClaims struct {
	UserID    int    `json:"user_id"`
	Name      string `json:"name"`
	TwoFactor bool   `json:"two_factor"`
	jwt.RegisteredClaims
}

// UserService handles registration, login and the second-factor gate.
type UserService struct {
	userRepo repository.UserRepositoryInterface
	rdb      *redis.Client
}

// NewUserService creates a new instance of UserService.
func NewUserService(userRepo repository.UserRepositoryInterface, rdb *redis.Client) *UserService {
	return &UserService{
		userRepo: userRepo,
		rdb:      rdb,
	}
}

// Register creates a user with a bcrypt password hash.
func (s *UserService) Register(ctx context.Context, username, password string) (*entity.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.CreateUser(ctx, &entity.User{
		Username:     username,
		PasswordHash: string(hash),
	})
	if err != nil {
		logger.Error().Err(err).Msg("Error creating user")
		return nil, err
	}

	logger.Info().Int("user_id", user.ID).Str("username", username).Msg("User registered")
	return user, nil
}

// Login checks the password and returns a JWT without the second factor.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.issueToken(user, false)
}

// RequestSecondFactor issues a short-lived one-time code for the user. How
// the code reaches the user (mail, authenticator app) is outside this
// service; here it is handed back to the delivery boundary.
func (s *UserService) RequestSecondFactor(ctx context.Context, userID int) (string, error) {
	if _, err := s.userRepo.GetUserByID(ctx, userID); err != nil {
		return "", err
	}

	code := fmt.Sprintf("%06d", rand.Intn(1000000))
	redisKey := fmt.Sprintf("2fa-code:%d", userID)
	if err := s.rdb.Set(ctx, redisKey, code, secondFactorCodeTTL).Err(); err != nil {
		logger.Error().Err(err).Int("user_id", userID).Msg("Error storing second-factor code")
		return "", err
	}

	logger.Info().Int("user_id", userID).Msg("Second-factor code issued")
	return code, nil
}

// VerifySecondFactor consumes the one-time code and, when it matches, issues
// an upgraded token with the two-factor claim set.
func (s *UserService) VerifySecondFactor(ctx context.Context, userID int, code string) (string, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}

	redisKey := fmt.Sprintf("2fa-code:%d", userID)
	stored, err := s.rdb.GetDel(ctx, redisKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrInvalidCode
	}
	if err != nil {
		logger.Error().Err(err).Int("user_id", userID).Msg("Error reading second-factor code")
		return "", err
	}
	if stored != code {
		return "", ErrInvalidCode
	}

	logger.Info().Int("user_id", userID).Msg("Second factor verified")
	return s.issueToken(user, true)
}

func (s *UserService) issueToken(user *entity.User, twoFactor bool) (string, error) {
	claims := &JwtCustomClaims{
		UserID:    user.ID,
		Name:      user.Username,
		TwoFactor: twoFactor,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 24)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(JwtSecret())
}

// JwtSecret returns the HMAC signing key, shared with the echo-jwt
// middleware.
func JwtSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret"
	}
	return []byte(secret)
}
