// Package session implements the Session Table of §3: active and
// historical client sessions keyed by username. A username with a live
// session cannot register again; a username whose session went inactive
// can reconnect into the same slot.
package session
