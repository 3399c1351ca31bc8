// Package request implements the Access Request Queue of §3: a
// monotonically-numbered log of READ/WRITE access requests moving through
// PENDING, APPROVED and DENIED states, with duplicate-PENDING collapse.
package request
