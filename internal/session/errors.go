package session

import "errors"

// ErrUnauthenticated rejects requests without a resolvable actor.
var ErrUnauthenticated = errors.New("unauthenticated")
