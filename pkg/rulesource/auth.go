package rulesource

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"rxsentinel/arbiter/pkg/config"
)

// credentialFunc resolves the transport credential for a remote
// operation. go-git treats a nil AuthMethod as anonymous access.
type credentialFunc func() (transport.AuthMethod, error)

// buildCredentials turns the configured auth mode into a resolver. It
// rejects configurations that can never work, so a typo in the mode or
// a missing token fails at startup rather than on the first poll. SSH
// keys resolve per call: the key file is re-read on every clone and
// pull, so a rotated key takes effect without a restart.
func buildCredentials(cfg config.GitAuthConfig) (credentialFunc, error) {
	switch cfg.Type {
	case "", "none":
		return func() (transport.AuthMethod, error) { return nil, nil }, nil

	case "token":
		if cfg.Token == "" {
			return nil, errors.New("token auth configured without a token")
		}
		// Token-accepting hosts ignore the username.
		creds := &githttp.BasicAuth{Username: "git", Password: cfg.Token}
		return func() (transport.AuthMethod, error) { return creds, nil }, nil

	case "ssh":
		if cfg.SSHKeyPath == "" {
			return nil, errors.New("ssh auth configured without a key path")
		}
		keyPath, passphrase := cfg.SSHKeyPath, cfg.SSHKeyPassphrase
		return func() (transport.AuthMethod, error) {
			return sshKey(keyPath, passphrase)
		}, nil

	default:
		return nil, fmt.Errorf("unsupported git auth type %q", cfg.Type)
	}
}

// sshKey loads an OpenSSH private key, refusing key files readable by
// group or world.
func sshKey(path, passphrase string) (transport.AuthMethod, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("ssh key: %w", err)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return nil, fmt.Errorf("ssh key %s permissions too open (%#o), want 0600", path, perm)
	}

	keys, err := gitssh.NewPublicKeysFromFile("git", path, passphrase)
	if err != nil {
		return nil, fmt.Errorf("load ssh key: %w", err)
	}
	return keys, nil
}
