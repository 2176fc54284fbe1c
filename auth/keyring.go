// Package auth keeps credentials in the system keyring instead of the config file.
package auth

import (
	"errors"

	"github.com/drmplay-cli/drmplay/constant"
	"github.com/zalando/go-keyring"
)

// Credentials stored under the application's keyring service.
const (
	RedisPassword = "redis-password"
)

// Set stores secret under name.
func Set(name, secret string) error {
	return keyring.Set(constant.App, name, secret)
}

// Get returns the secret stored under name and whether there is one.
// A keyring that cannot be reached counts as holding nothing.
func Get(name string) (string, bool) {
	secret, err := keyring.Get(constant.App, name)
	if err != nil {
		return "", false
	}
	return secret, true
}

// Delete removes the secret stored under name. Deleting a missing secret is not an error.
func Delete(name string) error {
	if err := keyring.Delete(constant.App, name); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}
