package sentiment

import "os"

// Built-in word list locations, used when neither an explicit override nor
// an environment variable names a path.
const (
	DefaultPositiveWordlist = "input/positive.txt"
	DefaultNegativeWordlist = "input/negative.txt"
)

// Environment variables that supply word list paths when no explicit
// override is given.
const (
	EnvPositiveWordlist = "POSITIVE_WORDLIST_PATH"
	EnvNegativeWordlist = "NEGATIVE_WORDLIST_PATH"
)

// Config names the two word list files backing a Classifier. The zero
// value is valid and resolves to environment or built-in defaults.
type Config struct {
	PositiveWordlist string
	NegativeWordlist string
}

// WithDefaults resolves each path with priority: explicit override, then
// environment variable, then built-in default. The receiver is not
// modified.
func (c Config) WithDefaults() Config {
	c.PositiveWordlist = resolvePath(c.PositiveWordlist, EnvPositiveWordlist, DefaultPositiveWordlist)
	c.NegativeWordlist = resolvePath(c.NegativeWordlist, EnvNegativeWordlist, DefaultNegativeWordlist)
	return c
}

func resolvePath(override, envVar, fallback string) string {
	if override != "" {
		return override
	}
	if env := os.Getenv(envVar); env != "" {
		return env
	}
	return fallback
}
