package rulesource

import (
	"os"
	"path/filepath"
	"testing"

	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxsentinel/arbiter/pkg/config"
)

func TestBuildCredentials(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.GitAuthConfig
		wantErr string
	}{
		{
			name: "empty defaults to anonymous",
			cfg:  config.GitAuthConfig{},
		},
		{
			name: "none",
			cfg:  config.GitAuthConfig{Type: "none"},
		},
		{
			name: "token",
			cfg:  config.GitAuthConfig{Type: "token", Token: "ghp_example"},
		},
		{
			name:    "token without token",
			cfg:     config.GitAuthConfig{Type: "token"},
			wantErr: "without a token",
		},
		{
			name: "ssh",
			cfg:  config.GitAuthConfig{Type: "ssh", SSHKeyPath: "/keys/id_ed25519"},
		},
		{
			name:    "ssh without key path",
			cfg:     config.GitAuthConfig{Type: "ssh"},
			wantErr: "without a key path",
		},
		{
			name:    "unknown type",
			cfg:     config.GitAuthConfig{Type: "kerberos"},
			wantErr: "unsupported",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds, err := buildCredentials(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, creds)
		})
	}
}

func TestAnonymousCredentialsResolveNil(t *testing.T) {
	creds, err := buildCredentials(config.GitAuthConfig{Type: "none"})
	require.NoError(t, err)

	auth, err := creds()
	require.NoError(t, err)
	assert.Nil(t, auth)
}

func TestTokenCredentialsUseBasicAuth(t *testing.T) {
	creds, err := buildCredentials(config.GitAuthConfig{Type: "token", Token: "ghp_secret"})
	require.NoError(t, err)

	auth, err := creds()
	require.NoError(t, err)

	basic, ok := auth.(*githttp.BasicAuth)
	require.True(t, ok, "expected HTTP basic auth")
	assert.Equal(t, "ghp_secret", basic.Password)
}

func TestSSHCredentialsMissingKey(t *testing.T) {
	creds, err := buildCredentials(config.GitAuthConfig{
		Type:       "ssh",
		SSHKeyPath: filepath.Join(t.TempDir(), "absent"),
	})
	require.NoError(t, err)

	_, err = creds()
	assert.Error(t, err)
}

func TestSSHCredentialsRejectOpenPermissions(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "id_rsa")
	require.NoError(t, os.WriteFile(keyPath, []byte("not a real key"), 0o600))
	require.NoError(t, os.Chmod(keyPath, 0o644))

	creds, err := buildCredentials(config.GitAuthConfig{Type: "ssh", SSHKeyPath: keyPath})
	require.NoError(t, err)

	_, err = creds()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permissions too open")
}
