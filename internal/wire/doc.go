// Package wire defines the ASCII line protocol spoken between clients, the
// name server, and storage servers: the verb vocabulary, the ERR_ reason
// suffixes, and small helpers to read/write protocol lines over a
// net.Conn. Nothing in this package owns any server state; it is pure wire
// format, mirroring the role internal/p9util played for musclefs' 9P
// encoding.
package wire
