package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunRejectsUnknownCommand(t *testing.T) {
	_, err := Run(context.Background(), nil, DefaultDir, "sideways")
	require.ErrorContains(t, err, "unknown migrate command")
}

func TestRunRequiresDatabase(t *testing.T) {
	_, err := Run(context.Background(), nil, DefaultDir, CmdStatus)
	require.ErrorContains(t, err, "db is required")
}

func TestMigrateToVersionRejectsMalformedVersion(t *testing.T) {
	for _, v := range []string{"", "latest", "2026"} {
		_, err := MigrateToVersion(context.Background(), nil, DefaultDir, v)
		require.ErrorContains(t, err, "invalid version", v)
	}
}
