package rpc

import "strings"

// MaxRemoteNameLen bounds a ctfile name (spec §4.7/§8 invariant 10,
// CT_CTFILE_MAXLEN in the original implementation).
const MaxRemoteNameLen = 255

// rejectedChars mirrors the original CT_CTFILE_REJECTCHRS: characters that
// would let a crafted name escape the remote catalog's flat namespace or
// collide with path separators.
const rejectedChars = "/\\"

// CookRemoteName validates name against the remote catalog's naming rules
// and returns it unchanged if acceptable.
func CookRemoteName(name string) (string, error) {
	if name == "" {
		return "", errEmptyName
	}
	if len(name) > MaxRemoteNameLen {
		return "", errNameTooLong
	}
	if strings.ContainsAny(name, rejectedChars) {
		return "", errNameRejectedChars
	}
	if name == "." || name == ".." {
		return "", errNameReserved
	}
	return name, nil
}

// VerifyRemoteName reports whether name would be accepted by CookRemoteName
// without returning the (identical) cooked value.
func VerifyRemoteName(name string) error {
	_, err := CookRemoteName(name)
	return err
}
