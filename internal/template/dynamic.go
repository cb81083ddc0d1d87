package template

import (
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// resolveDynamic handles the $-prefixed generated variables.
func resolveDynamic(name string) (string, error) {
	switch name {
	case "$timestamp":
		return strconv.FormatInt(time.Now().Unix(), 10), nil
	case "$isoTimestamp":
		return time.Now().UTC().Format(time.RFC3339), nil
	case "$randomInt":
		return strconv.FormatInt(int64(rand.Int32()), 10), nil
	case "$guid":
		return uuid.New().String(), nil
	default:
		return "", undefinedErr(name, "unknown dynamic variable")
	}
}
