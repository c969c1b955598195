package passphrase

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSourceReadsEnvironmentOnce(t *testing.T) {
	t.Setenv(EnvVar, "correct horse")
	src := NewSource(EnvVar)

	value, err := src.Get()
	require.NoError(t, err)
	require.Equal(t, "correct horse", value)

	t.Setenv(EnvVar, "changed")
	again, err := src.Get()
	require.NoError(t, err)
	require.Equal(t, "correct horse", again, "value is cached after the first lookup")
}

func TestSourceRejectsBlankEnvironment(t *testing.T) {
	t.Setenv(EnvVar, "   ")
	_, err := NewSource(EnvVar).Get()
	require.Error(t, err)
	require.Contains(t, err.Error(), EnvVar)
}

func TestSourceOptions(t *testing.T) {
	src := NewSource(" "+EnvVar+" ", WithLabel("authority keystore"), WithConfirm(), WithLabel("  "))
	require.Equal(t, EnvVar, src.envVar)
	require.Equal(t, "authority keystore", src.label)
	require.True(t, src.confirm)
}
