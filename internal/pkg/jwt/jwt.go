package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token expired")
	ErrWrongAudience    = errors.New("token audience mismatch")
	ErrMalformedSubject = errors.New("malformed token subject")
)

const (
	AudienceStaff = "staff"
	AudienceKiosk = "kiosk"
)

type Claims struct {
	Role   string `json:"role,omitempty"`
	LaneID *int   `json:"lane_id,omitempty"`
	jwt.RegisteredClaims
}

type Service struct {
	secretKey     []byte
	staffDuration time.Duration
	kioskDuration time.Duration
}

func NewService(secretKey string, staffDuration, kioskDuration time.Duration) *Service {
	return &Service{
		secretKey:     []byte(secretKey),
		staffDuration: staffDuration,
		kioskDuration: kioskDuration,
	}
}

func (s *Service) GenerateStaffToken(staffID uuid.UUID, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   staffID.String(),
			Audience:  jwt.ClaimStrings{AudienceStaff},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.staffDuration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// Kiosk credentials are long-lived, lane-bound, and carry no staff identity.
func (s *Service) GenerateKioskToken(laneID int) (string, error) {
	now := time.Now()
	claims := Claims{
		LaneID: &laneID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "kiosk",
			Audience:  jwt.ClaimStrings{AudienceKiosk},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.kioskDuration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (c *Claims) HasAudience(aud string) bool {
	for _, a := range c.Audience {
		if a == aud {
			return true
		}
	}
	return false
}

func (c *Claims) StaffID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, ErrMalformedSubject
	}
	return id, nil
}
