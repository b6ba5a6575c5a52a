package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "trustid/pkg/domain"
	dErrors "trustid/pkg/domain-errors"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func pending(t *testing.T, attrs ...string) *Consent {
	t.Helper()
	c, err := NewRequest(id.NewConsentID(), id.NewEntityID(), id.NewEntityID(), "Acme Bank", "KYC", attrs, t0)
	require.NoError(t, err)
	return c
}

func TestNewRequest(t *testing.T) {
	t.Run("pending with no timestamps", func(t *testing.T) {
		c := pending(t, " Name ", "Address", "Name")
		assert.Equal(t, StatusPending, c.Status)
		assert.Nil(t, c.GrantedOn)
		assert.Nil(t, c.ExpiresOn)
		assert.Equal(t, []string{"Name", "Address"}, c.RequestedAttributes)
		assert.Equal(t, c.RequestedAttributes, c.Attributes)
	})

	t.Run("empty attribute set", func(t *testing.T) {
		_, err := NewRequest(id.NewConsentID(), id.NewEntityID(), id.NewEntityID(), "x", "KYC", []string{" "}, t0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("self request", func(t *testing.T) {
		e := id.NewEntityID()
		_, err := NewRequest(id.NewConsentID(), e, e, "x", "KYC", []string{"Name"}, t0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestApprove(t *testing.T) {
	t.Run("partial approval withholds attributes", func(t *testing.T) {
		c := pending(t, "Name", "Address", "Income")
		require.NoError(t, c.Approve([]string{"Name", "Address"}, 90, t0))
		assert.Equal(t, StatusActive, c.Status)
		assert.Equal(t, []string{"Name", "Address"}, c.Attributes)
		assert.Equal(t, []string{"Name", "Address", "Income"}, c.RequestedAttributes)
		assert.Equal(t, t0.Add(90*24*time.Hour), *c.ExpiresOn)
	})

	t.Run("nil approval grants everything requested", func(t *testing.T) {
		c := pending(t, "Name", "Address")
		require.NoError(t, c.Approve(nil, 30, t0))
		assert.Equal(t, []string{"Name", "Address"}, c.Attributes)
	})

	t.Run("ten year grant is an ordinary duration", func(t *testing.T) {
		c := pending(t, "Name")
		require.NoError(t, c.Approve([]string{"Name"}, 3650, t0))
		assert.Equal(t, int64(3650*86400), int64(c.ExpiresOn.Sub(*c.GrantedOn).Seconds()))
	})

	t.Run("longest grant stays representable", func(t *testing.T) {
		c := pending(t, "Name")
		require.NoError(t, c.Approve([]string{"Name"}, MaxDurationDays, t0))
		assert.True(t, c.ExpiresOn.After(t0))
	})

	t.Run("guards", func(t *testing.T) {
		tests := []struct {
			name     string
			approved []string
			days     int
		}{
			{"superset", []string{"Name", "Income"}, 30},
			{"empty", []string{}, 30},
			{"zero days", []string{"Name"}, 0},
			{"negative days", []string{"Name"}, -1},
			{"beyond the representable range", []string{"Name"}, MaxDurationDays + 1},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				c := pending(t, "Name")
				err := c.Approve(tt.approved, tt.days, t0)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
				assert.Equal(t, StatusPending, c.Status)
			})
		}
	})

	t.Run("names the unrequested attributes", func(t *testing.T) {
		c := pending(t, "Name")
		assert.EqualError(t, c.Approve([]string{"Name", "Income", "Phone"}, 30, t0), "attributes were not requested: Income, Phone")
	})

	t.Run("only from pending", func(t *testing.T) {
		c := pending(t, "Name")
		require.NoError(t, c.Reject(t0))
		assert.True(t, dErrors.HasCode(c.Approve(nil, 30, t0), dErrors.CodeInvalidState))
	})
}

func TestTerminalStates(t *testing.T) {
	rejected := pending(t, "Name")
	require.NoError(t, rejected.Reject(t0))

	revoked := pending(t, "Name")
	require.NoError(t, revoked.Approve(nil, 30, t0))
	require.NoError(t, revoked.Revoke(t0.Add(time.Hour)))

	for _, c := range []*Consent{rejected, revoked} {
		assert.True(t, c.Status.IsTerminal())
		assert.True(t, c.Status.IsStored())
		assert.EqualError(t, c.Reject(t0), "consent is already "+string(c.Status))
		assert.True(t, dErrors.HasCode(c.Approve(nil, 30, t0), dErrors.CodeInvalidState))
		assert.True(t, dErrors.HasCode(c.Reject(t0), dErrors.CodeInvalidState))
		assert.True(t, dErrors.HasCode(c.Revoke(t0), dErrors.CodeInvalidState))
		assert.False(t, c.Retire(t0))
	}
}

func TestEffectiveExpiry(t *testing.T) {
	c := pending(t, "Name")
	require.NoError(t, c.Approve(nil, 1, t0))
	expiry := *c.ExpiresOn

	assert.True(t, IsEffectivelyActive(c, expiry))
	assert.Equal(t, StatusActive, c.EffectiveStatus(expiry))

	after := expiry.Add(time.Nanosecond)
	assert.False(t, IsEffectivelyActive(c, after))
	assert.Equal(t, StatusExpired, c.EffectiveStatus(after))
	assert.Equal(t, StatusActive, c.Status, "expiry is never written")

	assert.True(t, dErrors.HasCode(c.Revoke(after), dErrors.CodeInvalidState))
	assert.False(t, IsEffectivelyActive(nil, t0))
}

func TestRetire(t *testing.T) {
	p := pending(t, "Name")
	assert.True(t, p.Retire(t0))
	assert.Equal(t, StatusRejected, p.Status)

	a := pending(t, "Name")
	require.NoError(t, a.Approve(nil, 30, t0))
	assert.True(t, a.Retire(t0))
	assert.Equal(t, StatusRevoked, a.Status)
}

func TestClone(t *testing.T) {
	c := pending(t, "Name")
	require.NoError(t, c.Approve(nil, 30, t0))
	cp := c.Clone()
	cp.Attributes[0] = "changed"
	*cp.ExpiresOn = t0
	assert.Equal(t, "Name", c.Attributes[0])
	assert.NotEqual(t, t0, *c.ExpiresOn)
}
