package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "trustid/pkg/domain-errors"
)

func TestProviderApply(t *testing.T) {
	now := time.Date(2025, 3, 8, 9, 0, 0, 0, time.UTC)

	t.Run("normalizes the profile", func(t *testing.T) {
		p := &Provider{}
		require.NoError(t, p.Apply(Profile{Name: " Acme Bank ", Category: " bank ", ContactEmail: "KYC@Acme.example"}, now))
		assert.Equal(t, "Acme Bank", p.Name)
		assert.Equal(t, "BANK", p.Category)
		assert.Equal(t, "kyc@acme.example", p.ContactEmail)
		assert.Equal(t, now, p.UpdatedAt)
	})

	t.Run("requires name and category", func(t *testing.T) {
		err := (&Provider{}).Apply(Profile{Name: "Acme"}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("government category is reserved", func(t *testing.T) {
		err := (&Provider{}).Apply(Profile{Name: "Acme", Category: "govt"}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("promoted listing keeps its category", func(t *testing.T) {
		p := &Provider{}
		p.Promote("", "", now)
		require.NoError(t, p.Apply(Profile{Name: "Tax", Category: "FINANCE"}, now))
		assert.Equal(t, CategoryGovernment, p.Category)
	})
}

func TestPromoteAndDemote(t *testing.T) {
	now := time.Date(2025, 3, 8, 9, 0, 0, 0, time.UTC)
	p := &Provider{Description: "Income tax filing", Category: "FINANCE"}

	p.Promote("  ", "Help@Tax.gov.example", now)
	assert.True(t, p.GovernmentService)
	assert.True(t, p.Verified)
	assert.True(t, p.Active)
	assert.Equal(t, CategoryGovernment, p.Category)
	assert.Equal(t, "Income tax filing", p.Description)
	assert.Equal(t, "help@tax.gov.example", p.ContactEmail)

	p.Demote(now)
	assert.False(t, p.GovernmentService)
	assert.Equal(t, CategoryOther, p.Category)
	assert.True(t, p.Verified)
}
