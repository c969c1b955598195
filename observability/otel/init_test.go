package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitRequiresServiceName(t *testing.T) {
	_, err := Init(context.Background(), Config{})
	require.Error(t, err)
}

func TestInitWithoutExportersShutsDownCleanly(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "huntd", Environment: "test"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestParseHeaders(t *testing.T) {
	headers := ParseHeaders(" authorization=Bearer abc , broken, =skip,x-tenant=hunt ")
	require.Equal(t, map[string]string{
		"authorization": "Bearer abc",
		"x-tenant":      "hunt",
	}, headers)
}
