package wire

import "github.com/YuminosukeSato/learningmachine/pkg/errors"

// ErrBadTag marks a frame whose header is not a list tag.
var ErrBadTag = errors.New("wire: bad frame tag")
