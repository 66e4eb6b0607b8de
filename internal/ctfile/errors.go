package ctfile

import "errors"

var errNotHex = errors.New("ctfile: line is not a hex SHA1")
