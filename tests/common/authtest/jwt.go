//go:build unit

package authtest

import (
	"testing"
	"time"

	"checkin-core/internal/domain/staff"
	"checkin-core/internal/pkg/jwt"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

// Service returns a JWT service wired with the shared test secret, so tokens
// minted here validate inside the middleware under test.
func Service() *jwt.Service {
	return jwt.NewService(testSecret, time.Hour, 30*24*time.Hour)
}

func StaffToken(t *testing.T, staffID uuid.UUID, role staff.Role) string {
	t.Helper()
	token, err := Service().GenerateStaffToken(staffID, role.String())
	require.NoError(t, err)
	return token
}

func KioskToken(t *testing.T, laneID int) string {
	t.Helper()
	token, err := Service().GenerateKioskToken(laneID)
	require.NoError(t, err)
	return token
}
