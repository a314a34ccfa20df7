// File: internal/config/credentials.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	// UsernameEnv and PasswordEnv name the credential variables.
	UsernameEnv = "APP_USERNAME"
	PasswordEnv = "APP_PASSWORD"
	// DefaultUsername is used when no username is configured.
	DefaultUsername = "rpa.gestaoac"
)

// ErrMissingPassword is returned when no password is configured.
var ErrMissingPassword = errors.New(PasswordEnv + " is not set")

// Credentials is the pair submitted on the login frame.
type Credentials struct {
	Username string
	Password string
}

// String keeps the password out of logs.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Username: %q, Password: [redacted]}", c.Username)
}

// Validate reports ErrMissingPassword when the password is blank.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Password) == "" {
		return ErrMissingPassword
	}
	return nil
}

// LoadCredentials reads APP_USERNAME and APP_PASSWORD from the environment,
// falling back to the dotenv file at envFile when it exists. Process
// environment always wins over the file.
func LoadCredentials(envFile string) (Credentials, error) {
	v := viper.New()
	v.SetDefault(UsernameEnv, DefaultUsername)
	_ = v.BindEnv(UsernameEnv)
	_ = v.BindEnv(PasswordEnv)

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return Credentials{}, fmt.Errorf("error reading env file %s: %w", envFile, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Credentials{}, fmt.Errorf("error reading env file %s: %w", envFile, err)
		}
	}

	creds := Credentials{
		Username: strings.TrimSpace(v.GetString(UsernameEnv)),
		Password: v.GetString(PasswordEnv),
	}
	if creds.Username == "" {
		creds.Username = DefaultUsername
	}
	return creds, nil
}
