package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/scrapify/scrapify-backend/internal/models"
	"github.com/scrapify/scrapify-backend/internal/storage"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

const maxNameLength = 100

// SignupInput is a registration request
type SignupInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// ProfileInput carries the editable profile fields. Nil fields are left
// unchanged.
type ProfileInput struct {
	Name     *string
	Phone    *string
	Password *string
}

// AuthService registers users, checks credentials and serves profiles
type AuthService struct {
	store     storage.Store
	tokens    *TokenService
	addresses *AddressService
	log       *zap.Logger
}

func NewAuthService(store storage.Store, tokens *TokenService, addresses *AddressService, log *zap.Logger) *AuthService {
	return &AuthService{store: store, tokens: tokens, addresses: addresses, log: log}
}

// Signup creates an account with a bcrypt-hashed password.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email, emailErr := NormalizeEmail(in.Email)
	phone := normalizePhone(in.Phone)
	password := strings.TrimSpace(in.Password)
	if name == "" || emailErr != nil || password == "" || !phonePattern.MatchString(phone) || len(name) > maxNameLength {
		return nil, invalid("", "All fields are required and must be valid")
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{Name: name, Email: email, Phone: phone, Password: hashed}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user registered", zap.Uint("user_id", user.ID))
	return user, nil
}

// Login checks credentials and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email, err := NormalizeEmail(email)
	password = strings.TrimSpace(password)
	if err != nil || password == "" {
		return nil, "", invalid("", "Email and password are required")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}
	return user, token, nil
}

// Profile returns the user and their latest address, which may be nil.
func (s *AuthService) Profile(ctx context.Context, userID uint) (*models.User, *models.Address, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("load user: %w", err)
	}
	address, err := s.addresses.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return user, address, nil
}

// UpdateProfile changes the name and/or phone of a user.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*models.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" || len(name) > maxNameLength {
			return nil, invalid("name", "Name is required and must be at most %d characters", maxNameLength)
		}
		user.Name = name
	}
	if in.Phone != nil {
		phone := normalizePhone(*in.Phone)
		if !phonePattern.MatchString(phone) {
			return nil, invalid("phone", "Invalid phone number")
		}
		user.Phone = phone
	}
	if in.Password != nil && strings.TrimSpace(*in.Password) != "" {
		hashed, err := hashPassword(strings.TrimSpace(*in.Password))
		if err != nil {
			return nil, err
		}
		user.Password = hashed
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// SetProfilePicture records filename, already stored by media intake, as
// the user's picture.
func (s *AuthService) SetProfilePicture(ctx context.Context, userID uint, filename string) (*models.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	user.ProfilePicture = filename
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// NormalizeEmail trims and lowercases raw and checks it is a bare address.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("email", "Valid email is required")
	}
	return email, nil
}

func normalizePhone(raw string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(raw))
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
