package invitation

import (
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.True(t, StatusAccepted.IsTerminal())
	assert.True(t, StatusExpired.IsTerminal())
	assert.True(t, StatusRevoked.IsTerminal())
}

func TestInvitation_CanBeAcceptedAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	inv := Invitation{Status: StatusPending, ExpiresAt: now.Add(time.Minute)}

	assert.True(t, inv.CanBeAcceptedAt(now))
	assert.False(t, inv.CanBeAcceptedAt(now.Add(time.Minute)))

	inv.Status = StatusRevoked
	assert.False(t, inv.CanBeAcceptedAt(now))
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected validation errors, got %v", err)
	return verrs.ToMap()
}

func TestCreateRequest_Validate(t *testing.T) {
	valid := func() CreateRequest {
		return CreateRequest{
			OrganisationID: "org-1",
			InviterID:      "user-1",
			Email:          "Alice@X.com",
			Name:           "Alice",
		}
	}

	t.Run("defaults role to employee", func(t *testing.T) {
		req := valid()
		require.NoError(t, req.Validate())
		assert.Equal(t, "employee", req.Role)
	})

	t.Run("rejects manager and admin", func(t *testing.T) {
		for _, role := range []string{"manager", "admin", "owner"} {
			req := valid()
			req.Role = role
			assert.Contains(t, fieldsOf(t, req.Validate()), "role", role)
		}
	})

	t.Run("rejects long custom message", func(t *testing.T) {
		req := valid()
		msg := string(make([]rune, MaxCustomMessageLength+1))
		req.CustomMessage = &msg
		assert.Contains(t, fieldsOf(t, req.Validate()), "custom_message")
	})

	t.Run("rejects bad email", func(t *testing.T) {
		req := valid()
		req.Email = "not-an-email"
		assert.Contains(t, fieldsOf(t, req.Validate()), "email")
	})
	t.Run("rejects control characters in name", func(t *testing.T) {
		req := valid()
		req.Name = "Alice\r\nBcc: eve@x.com"
		assert.Contains(t, fieldsOf(t, req.Validate()), "name")
	})
}
