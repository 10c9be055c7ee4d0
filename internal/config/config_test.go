package config

import (
	"testing"
	"time"

	"casedesk/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"WORKBOOK_FILE", "EMAIL_FILE", "ANCHOR_TOKEN", "TOOLS_PORT", "PORT", "CHECKPOINT_DRIVER", "RECURSION_LIMIT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "File.xlsm", cfg.Data.WorkbookFile)
	assert.Equal(t, "mail.csv", cfg.Data.EmailFile)
	assert.Equal(t, "STT", cfg.Data.AnchorToken)
	assert.Equal(t, "8080", cfg.Tools.Port)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Checkpoint.Driver)
	assert.Equal(t, 100, cfg.Agent.RecursionLimit)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WORKBOOK_FILE", "/data/cases.xlsx")
	t.Setenv("CHECKPOINT_DRIVER", "Postgres")
	t.Setenv("RECURSION_LIMIT", "12")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/cases.xlsx", cfg.Data.WorkbookFile)
	assert.Equal(t, "postgres", cfg.Checkpoint.Driver)
	assert.Equal(t, 12, cfg.Agent.RecursionLimit)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"blank anchor", "ANCHOR_TOKEN", "   "},
		{"unknown driver", "CHECKPOINT_DRIVER", "mysql"},
		{"negative recursion", "RECURSION_LIMIT", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
		})
	}
}
