package request

import "errors"

// ErrNotFound is returned when an id given to Approve or Deny does not
// exist, the ERR_REQ_NOT_FOUND case of §4.4.
var ErrNotFound = errors.New("access request not found")

// ErrNotPending is returned when Approve or Deny targets a request that
// already transitioned, the ERR_REQ_NOT_PENDING case.
var ErrNotPending = errors.New("access request not pending")

// ErrNotOwner is returned when the caller of Approve or Deny is not the
// file owner, the ERR_NOT_REQUEST_OWNER case.
var ErrNotOwner = errors.New("caller is not the request owner")
