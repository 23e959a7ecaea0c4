package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"laundry-booking-backend/config"
	"laundry-booking-backend/internal/clock"
	"laundry-booking-backend/internal/model"
)

var (
	ErrInviteCode     = errors.New("invalid invite code")
	ErrUnknownParty   = errors.New("unknown party")
	ErrNameTaken      = errors.New("this name is already registered")
	ErrBadCredentials = errors.New("wrong name or password")
	ErrBadToken       = errors.New("invalid or expired session token")
)

// Session identifies the signed-in user for the duration of a request. This
// replaces ambient current-user globals: it is built from the token on every
// request and handed explicitly to whoever needs it.
type Session struct {
	UserID string
	Name   string
	Party  string
}

// Service handles registration and JWT sessions.
type Service struct {
	db      *gorm.DB
	cfg     *config.AuthConfig
	parties []string
	clk     clock.Clock
}

func New(db *gorm.DB, cfg *config.Config, clk clock.Clock) *Service {
	return &Service{db: db, cfg: &cfg.Auth, parties: cfg.Parties, clk: clk}
}

// Register creates a user after checking the household invite code. The
// code check runs before any store access so a miss is a plain validation
// error, never logged as a failure.
func (s *Service) Register(ctx context.Context, name, password, party, inviteCode string) (*model.User, error) {
	if inviteCode != s.cfg.InviteCode {
		return nil, ErrInviteCode
	}
	if !s.knownParty(party) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownParty, party)
	}

	var taken int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("name = ?", name).Count(&taken).Error; err != nil {
		return nil, fmt.Errorf("auth: name lookup: %w", err)
	}
	if taken > 0 {
		return nil, ErrNameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	user := model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Party:        party,
		PasswordHash: string(hash),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("auth: create user: %w", err)
	}
	return &user, nil
}

// Login verifies the password and returns a signed session token.
func (s *Service) Login(ctx context.Context, name, password string) (string, *model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, ErrBadCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("auth: load user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrBadCredentials
	}

	now := s.clk.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"name":  user.Name,
		"party": user.Party,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Duration(s.cfg.TokenTTLMinutes) * time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", nil, fmt.Errorf("auth: sign token: %w", err)
	}
	return token, &user, nil
}

// ParseToken validates a session token and rebuilds the session.
func (s *Service) ParseToken(tokenString string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(func() time.Time { return s.clk.Now() }))
	if err != nil || !token.Valid {
		return nil, ErrBadToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrBadToken
	}
	sub, _ := claims["sub"].(string)
	name, _ := claims["name"].(string)
	party, _ := claims["party"].(string)
	if sub == "" || party == "" {
		return nil, ErrBadToken
	}
	return &Session{UserID: sub, Name: name, Party: party}, nil
}

// IsAdmin reports whether the session belongs to the administrative party.
func (s *Service) IsAdmin(session *Session) bool {
	return s.cfg.AdminParty != "" && session.Party == s.cfg.AdminParty
}

func (s *Service) knownParty(party string) bool {
	for _, p := range s.parties {
		if p == party {
			return true
		}
	}
	return false
}
