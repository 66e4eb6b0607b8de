package rpc

import "errors"

var (
	errServerStatus      = errors.New("rpc: server replied with non-OK status")
	errEmptyName         = errors.New("rpc: remote name must not be empty")
	errNameTooLong       = errors.New("rpc: remote name exceeds maximum length")
	errNameRejectedChars = errors.New("rpc: remote name contains a rejected character")
	errNameReserved      = errors.New("rpc: remote name is a reserved path component")
)
