package common

import (
	"errors"
)

var ErrCancelled = errors.New("export cancelled")
var ErrTokenEmpty = errors.New("token is empty")
var ErrOutputNotWritable = errors.New("output directory is not writable")
