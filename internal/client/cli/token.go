package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/photosafe/photosafe/internal/client/config"
	"github.com/photosafe/photosafe/internal/cryptox"
)

// readPassword is a test seam for term.ReadPassword.
// In tests you can replace it with a stub to avoid touching the terminal.
var readPassword = term.ReadPassword

// loadToken returns the API session token. When the config names a token
// file its trimmed contents are used, otherwise the user is prompted on
// the terminal without echo.
func loadToken(c *config.Config) (string, error) {
	if c.TokenFile != "" {
		data, err := os.ReadFile(c.TokenFile)
		if err != nil {
			return "", fmt.Errorf("reading token file: %w", err)
		}
		token := strings.TrimSpace(string(data))
		if token == "" {
			return "", fmt.Errorf("token file %s is empty", c.TokenFile)
		}
		return token, nil
	}

	fmt.Fprint(os.Stderr, "Enter API token: ")
	raw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", fmt.Errorf("no token entered")
	}
	return token, nil
}

// masterKeyPath places the key file next to the local database.
func masterKeyPath(c *config.Config) string {
	return filepath.Join(filepath.Dir(c.DBPath), "master.key")
}

// loadOrCreateMasterKey reads the local master key, generating and saving
// a fresh one on first run. The key never leaves the device; it only wraps
// collection keys before they are sent to the server.
func loadOrCreateMasterKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) != cryptox.StreamKeySize {
			return nil, fmt.Errorf("master key file %s has unexpected size %d", path, len(key))
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading master key: %w", err)
	}

	key = cryptox.NewStreamKey()
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("saving master key: %w", err)
	}
	return key, nil
}
