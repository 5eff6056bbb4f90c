package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"chatty-server/internal/config"
	"chatty-server/internal/interfaces"
	"chatty-server/internal/models"
)

// defaultAvatarURL is the avatar assigned at registration when the client
// supplies none; the seed makes it deterministic per username.
const defaultAvatarURL = "https://api.dicebear.com/7.x/pixel-art/svg?seed=%s"

const tokenIssuer = "chatty-server"

// AuthService covers credential verification and signed-session issuance.
type AuthService interface {
	// Register creates a new user with the default role.
	Register(ctx context.Context, username, password, avatar string) (*models.User, error)

	// VerifyCredentials checks a username/password pair. A missing user, a
	// banned user and a wrong password all surface as the single
	// models.ErrInvalidCredentials; the distinction exists only in logs.
	VerifyCredentials(ctx context.Context, username, password string) (*models.User, error)

	// IssueSessionToken mints a signed, time-bound session token for the user.
	IssueSessionToken(user *models.User) (string, error)

	// ValidateSessionToken verifies signature and expiry, then re-resolves
	// the subject against current user state: a user deleted or banned after
	// issuance invalidates the token. Returned claims reflect current state.
	ValidateSessionToken(ctx context.Context, tokenString string) (*models.SessionClaims, error)
}

// Compile-time check to ensure authServiceImpl implements AuthService
var _ AuthService = (*authServiceImpl)(nil)

type authServiceImpl struct {
	userRepo interfaces.UserRepository
	cfg      *config.Config
	logger   *zap.Logger
}

// NewAuthService creates a new instance of authServiceImpl.
func NewAuthService(userRepo interfaces.UserRepository, cfg *config.Config, logger *zap.Logger) AuthService {
	return &authServiceImpl{
		userRepo: userRepo,
		cfg:      cfg,
		logger:   logger.Named("AuthService"),
	}
}

// Register creates a new user.
func (s *authServiceImpl) Register(ctx context.Context, username, password, avatar string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, models.ErrInvalidInput
	}

	existing, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, models.ErrUserNotFound) {
		s.logger.Error("Error checking existing username during registration", zap.Error(err), zap.String("username", username))
		return nil, fmt.Errorf("error checking existing username: %w", err)
	}
	if existing != nil {
		s.logger.Warn("Registration attempt for existing username", zap.String("username", username))
		return nil, models.ErrUserAlreadyExists
	}

	hashedPassword, err := hashPassword(password, s.cfg.PasswordPepper)
	if err != nil {
		s.logger.Error("Failed to hash password during registration", zap.Error(err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if avatar == "" {
		avatar = fmt.Sprintf(defaultAvatarURL, url.QueryEscape(username))
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hashedPassword,
		Role:         models.RoleUser,
		Avatar:       avatar,
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		// Duplicate username races are resolved by the unique constraint.
		if !errors.Is(err, models.ErrUserAlreadyExists) {
			s.logger.Error("Failed to create user via repository", zap.Error(err), zap.String("username", username))
		}
		return nil, err
	}

	s.logger.Info("User registered", zap.String("userID", user.ID.String()), zap.String("username", user.Username))
	return user, nil
}

// VerifyCredentials authenticates a username/password pair.
func (s *authServiceImpl) VerifyCredentials(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			s.logger.Warn("Login failed: user not found", zap.String("username", username))
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("Login failed: error getting user from repository", zap.Error(err), zap.String("username", username))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !checkPasswordHash(password, s.cfg.PasswordPepper, user.PasswordHash) {
		s.logger.Warn("Login failed: invalid password", zap.String("username", username), zap.String("userID", user.ID.String()))
		return nil, models.ErrInvalidCredentials
	}

	if user.IsBanned {
		// Same error as above so the response never reveals the ban.
		s.logger.Warn("Login failed: user is banned", zap.String("username", username), zap.String("userID", user.ID.String()))
		return nil, models.ErrInvalidCredentials
	}

	s.logger.Info("Credentials verified", zap.String("userID", user.ID.String()))
	return user, nil
}

// IssueSessionToken mints a signed session token for the user.
func (s *authServiceImpl) IssueSessionToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &models.SessionClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Avatar:   user.Avatar,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.SessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		s.logger.Error("Failed to sign session token", zap.Error(err), zap.String("userID", user.ID.String()))
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateSessionToken verifies a session token and the subject's current
// status. Sessions are stateless: logout only clears the client cookie, so
// the expiry horizon is the only server-side bound on a leaked token.
func (s *authServiceImpl) ValidateSessionToken(ctx context.Context, tokenString string) (*models.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.logger.Debug("Session token verification failed: expired")
			return nil, models.ErrTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenMalformed) {
			s.logger.Warn("Session token verification failed: malformed")
			return nil, models.ErrTokenMalformed
		}
		s.logger.Warn("Failed to parse session token", zap.Error(err))
		return nil, models.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid {
		s.logger.Warn("Session token verification failed (invalid claims type or signature)")
		return nil, models.ErrTokenInvalid
	}

	// The embedded claims are a snapshot; re-resolve the subject so a ban
	// or deletion applied after issuance revokes the session.
	user, err := s.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			s.logger.Warn("User from valid token not found", zap.String("userID", claims.UserID.String()))
			return nil, models.ErrTokenInvalid
		}
		s.logger.Error("Failed to get user during token validation", zap.Error(err), zap.String("userID", claims.UserID.String()))
		return nil, fmt.Errorf("failed to get user for validation: %w", err)
	}
	if user.IsBanned {
		s.logger.Warn("Session token rejected: user is banned", zap.String("userID", user.ID.String()))
		return nil, models.ErrTokenInvalid
	}

	claims.Username = user.Username
	claims.Role = user.Role
	claims.Avatar = user.Avatar
	return claims, nil
}

// --- Helper Functions ---

// applyPepper applies HMAC-SHA256 using the pepper as the key.
func applyPepper(password, pepper string) []byte {
	h := hmac.New(sha256.New, []byte(pepper))
	h.Write([]byte(password))
	return h.Sum(nil)
}

// hashPassword generates a bcrypt hash of the peppered password.
func hashPassword(password, pepper string) (string, error) {
	peppered := applyPepper(password, pepper)
	bytes, err := bcrypt.GenerateFromPassword(peppered, bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// checkPasswordHash compares a peppered password with its bcrypt hash.
func checkPasswordHash(password, pepper, hash string) bool {
	peppered := applyPepper(password, pepper)
	return bcrypt.CompareHashAndPassword([]byte(hash), peppered) == nil
}
