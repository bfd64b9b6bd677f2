package staff

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidRole        = errors.New("invalid staff role")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactive           = errors.New("staff account inactive")
	ErrNoPinConfigured    = errors.New("no admin pin configured")
)

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
)

func NewRole(s string) (Role, error) {
	switch Role(s) {
	case RoleEmployee, RoleManager:
		return Role(s), nil
	}
	return "", ErrInvalidRole
}

func (r Role) String() string { return string(r) }

type Staff struct {
	id           uuid.UUID
	username     string
	passwordHash string
	pinHash      *string
	role         Role
	isActive     bool
	lastLogin    *time.Time
}

func Reconstruct(id uuid.UUID, username, passwordHash string, pinHash *string, role Role, isActive bool, lastLogin *time.Time) *Staff {
	return &Staff{
		id:           id,
		username:     username,
		passwordHash: passwordHash,
		pinHash:      pinHash,
		role:         role,
		isActive:     isActive,
		lastLogin:    lastLogin,
	}
}

func (s *Staff) ID() uuid.UUID { return s.id }
func (s *Staff) Username() string { return s.username }
func (s *Staff) Role() Role { return s.role }
func (s *Staff) IsActive() bool { return s.isActive }
func (s *Staff) LastLogin() *time.Time { return s.lastLogin }

func (s *Staff) VerifyPassword(password string) error {
	if !s.isActive {
		return ErrInactive
	}
	if bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// VerifyPin checks the manager override PIN used for past-due bypass.
func (s *Staff) VerifyPin(pin string) error {
	if !s.isActive {
		return ErrInactive
	}
	if s.role != RoleManager {
		return ErrInvalidCredentials
	}
	if s.pinHash == nil {
		return ErrNoPinConfigured
	}
	if bcrypt.CompareHashAndPassword([]byte(*s.pinHash), []byte(pin)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
