package string

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSnakeCase(t *testing.T) {
	assert.Equal(t, "duration_days", ToSnakeCase("DurationDays"))
	assert.Equal(t, "requester_id", ToSnakeCase("RequesterID"))
	assert.Equal(t, "phone", ToSnakeCase("Phone"))
}

func TestNormalizeOwnerKey(t *testing.T) {
	assert.Equal(t, "+919876543210", NormalizeOwnerKey(" +91 98765-43210 "))
	assert.Equal(t, "alice@example.com", NormalizeOwnerKey("Alice@Example.COM"))
}
