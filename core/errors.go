package core

import "errors"

// ErrInvalidModule reports a dispatch target that declares no usable handler
// kind. It is a local failure of the one dispatch, never a crash of the
// owning agent actor.
var ErrInvalidModule = errors.New("target is neither a prism nor a beam")
