package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	require.NoError(t, ValidateName("alice"))
	require.ErrorIs(t, ValidateName(""), ErrNameEmpty)
	require.ErrorIs(t, ValidateName(strings.Repeat("a", MaxNameLen+1)), ErrNameTooLong)
}

func TestNewGuest(t *testing.T) {
	a := NewGuest()
	b := NewGuest()
	require.True(t, a.Guest)
	require.Equal(t, "guest", a.Name)
	require.NotEqual(t, a.ID, b.ID)
}

func TestSetName(t *testing.T) {
	u := NewGuest()
	require.NoError(t, u.SetName("alice"))
	require.Equal(t, "alice", u.Name)
	require.Error(t, u.SetName(""))
	require.Equal(t, "alice", u.Name)
}
