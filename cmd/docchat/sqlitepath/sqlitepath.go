// Package sqlitepath resolves which archive database a command operates on.
package sqlitepath

import (
	"errors"
	"os"
)

// EnvVar names the default archive database.
const EnvVar = "DOCCHAT_DB"

// ErrNoDatabase is returned when neither a flag nor the environment names a database.
var ErrNoDatabase = errors.New("no archive database given (use --sqlite or set " + EnvVar + ")")

// ResolveSQLitePath returns flagValue if set, else $DOCCHAT_DB.
func ResolveSQLitePath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv(EnvVar); v != "" {
		return v, nil
	}
	return "", ErrNoDatabase
}
