package controller

import "errors"

var errInvalidContextID = errors.New("id must be a valid uuid for non-global context levels")
