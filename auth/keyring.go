// Package auth provides a high-level API for persisting and retrieving cloud drive credentials from the system keyring.
package auth

import (
	"errors"

	"github.com/zalando/go-keyring"

	"github.com/ovod-cli/ovod/constant"
)

// ErrNoCredential is returned when no token is stored for a host.
var ErrNoCredential = errors.New("no stored credential")

// SetToken persists the access token for a cloud drive host.
func SetToken(host, token string) error {
	return keyring.Set(constant.Ovod, host, token)
}

// GetToken retrieves the access token for a cloud drive host.
func GetToken(host string) (string, error) {
	token, err := keyring.Get(constant.Ovod, host)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoCredential
	}
	return token, err
}

// DeleteToken removes the access token for a cloud drive host.
func DeleteToken(host string) error {
	err := keyring.Delete(constant.Ovod, host)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
