package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"checkin-core/internal/domain/staff"
	"checkin-core/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Two credential classes cross this boundary: staff tokens (register and
// office clients, carry a staff id and role) and kiosk tokens (lane-bound,
// long-lived, customer-actor only).
type AuthMiddleware struct {
	jwt *jwt.Service
}

const (
	ctxStaffIDKey   = "staff_id"
	ctxStaffRoleKey = "staff_role"
	ctxKioskLaneKey = "kiosk_lane_id"
)

func NewAuthMiddleware(jwtSvc *jwt.Service) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwtSvc}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(authHeader[len("Bearer "):])
	}
	return ""
}

// RequireStaff guards employee-actor endpoints.
func (m *AuthMiddleware) RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := m.validate(c)
		if claims == nil {
			return
		}
		if !claims.HasAudience(jwt.AudienceStaff) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Staff credential required"})
			c.Abort()
			return
		}
		staffID, err := claims.StaffID()
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}
		c.Set(ctxStaffIDKey, staffID)
		c.Set(ctxStaffRoleKey, staff.Role(claims.Role))
		c.Set("jwt_claims", map[string]any{
			"staff_id": staffID.String(),
			"role":     claims.Role,
		})
		c.Next()
	}
}

func (m *AuthMiddleware) RequireManager() gin.HandlerFunc {
	requireStaff := m.RequireStaff()
	return func(c *gin.Context) {
		requireStaff(c)
		if c.IsAborted() {
			return
		}
		if role, ok := GetStaffRole(c); !ok || role != staff.RoleManager {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			c.Abort()
		}
	}
}

// RequireLaneCredential guards customer-actor lane endpoints: a kiosk token
// bound to the lane in the path, or any staff token, passes.
func (m *AuthMiddleware) RequireLaneCredential() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := m.validate(c)
		if claims == nil {
			return
		}
		if claims.HasAudience(jwt.AudienceStaff) {
			if staffID, err := claims.StaffID(); err == nil {
				c.Set(ctxStaffIDKey, staffID)
				c.Set(ctxStaffRoleKey, staff.Role(claims.Role))
			}
			c.Next()
			return
		}
		if claims.HasAudience(jwt.AudienceKiosk) && claims.LaneID != nil {
			if laneParam := c.Param("laneId"); laneParam != "" {
				if laneID, err := strconv.Atoi(laneParam); err != nil || laneID != *claims.LaneID {
					c.JSON(http.StatusForbidden, gin.H{"error": "Kiosk credential is bound to another lane"})
					c.Abort()
					return
				}
			}
			c.Set(ctxKioskLaneKey, *claims.LaneID)
			c.Next()
			return
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "Lane credential required"})
		c.Abort()
	}
}

func (m *AuthMiddleware) validate(c *gin.Context) *jwt.Claims {
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
		c.Abort()
		return nil
	}
	claims, err := m.jwt.ValidateToken(token)
	if err != nil {
		slog.Warn("Token validation failed in auth middleware", "error", err.Error())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		c.Abort()
		return nil
	}
	return claims
}

func GetStaffID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(ctxStaffIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func GetStaffRole(c *gin.Context) (staff.Role, bool) {
	v, exists := c.Get(ctxStaffRoleKey)
	if !exists {
		return "", false
	}
	role, ok := v.(staff.Role)
	return role, ok
}

// GetKioskLane reports the lane a kiosk credential is bound to, when the
// request came from a kiosk rather than staff.
func GetKioskLane(c *gin.Context) (int, bool) {
	v, exists := c.Get(ctxKioskLaneKey)
	if !exists {
		return 0, false
	}
	laneID, ok := v.(int)
	return laneID, ok
}
