// Package replication implements the Replication Engine of §4.10: on a
// storage server's NM_FILE_MODIFIED notification, it fans out the new
// content to every other active replica of the file, asynchronously and
// without blocking the client that triggered the write.
package replication
