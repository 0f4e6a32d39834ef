package models

import "errors"

// ErrNotFound covers both a genuinely missing row and a row the caller is
// not allowed to see. The two are deliberately indistinguishable.
var ErrNotFound = errors.New("not found")
