package session

import "errors"

// ErrInUse is wrapped by Register when the requested username already has
// a live session, the ERR_USERNAME_IN_USE case of §4.4 REG_CLIENT.
var ErrInUse = errors.New("username in use")

// ErrFull is wrapped by Register when MAX_CLIENTS is reached and username
// has no existing slot to reconnect into, the ERR_MAX_CLIENTS case.
var ErrFull = errors.New("max clients reached")
