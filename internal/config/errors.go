package config

import "errors"

var (
	errMissingSecretsPath     = errors.New("config: secrets.path must be set")
	errMissingTransportAddress = errors.New("config: transport.address must be set")
	errInvalidPoolSize        = errors.New("config: session.transaction_pool_size must be positive")
)
