package credentials

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const (
	serviceName = "flurrybridge"
	keyAPIKey   = "flurry_api_key"
)

var ErrNotFound = errors.New("credentials: not found")

// StoreAPIKey keeps the Flurry API key in the OS keyring so it never
// has to live in the config file.
func StoreAPIKey(apiKey string) error {
	return keyring.Set(serviceName, keyAPIKey, apiKey)
}

func LoadAPIKey() (string, error) {
	val, err := keyring.Get(serviceName, keyAPIKey)
	if err != nil {
		return "", ErrNotFound
	}
	return val, nil
}

func DeleteAPIKey() {
	_ = keyring.Delete(serviceName, keyAPIKey)
}

func StoreAppSecret(key string, value string) error {
	return keyring.Set(serviceName, "app:"+key, value)
}

func LoadAppSecret(key string) (string, error) {
	val, err := keyring.Get(serviceName, "app:"+key)
	if err != nil {
		return "", ErrNotFound
	}
	return val, nil
}

func DeleteAppSecret(key string) {
	_ = keyring.Delete(serviceName, "app:"+key)
}
