package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringArrayScan(t *testing.T) {
	var a StringArray
	require.NoError(t, a.Scan([]byte(`["a","b"]`)))
	assert.Equal(t, StringArray{"a", "b"}, a)

	require.NoError(t, a.Scan(nil))
	assert.Empty(t, a)

	require.NoError(t, a.Scan("null"))
	assert.Empty(t, a)

	// Legacy plain strings become single-element arrays.
	require.NoError(t, a.Scan("plain"))
	assert.Equal(t, StringArray{"plain"}, a)
}

func TestStringArrayValue(t *testing.T) {
	v, err := StringArray{"x"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["x"]`, v)

	v, err = StringArray(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleStudent.Valid())
	assert.True(t, RoleAdvisor.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("Superuser").Valid())
}

func TestRecipientTypeValid(t *testing.T) {
	assert.True(t, RecipientAll.Valid())
	assert.True(t, RecipientRole.Valid())
	assert.True(t, RecipientUser.Valid())
	assert.False(t, RecipientType("group").Valid())
}
