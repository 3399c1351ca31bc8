// Package registry tracks known storage servers: their client/NM addresses,
// liveness, and last heartbeat time (§3 SS Registry, §4.5). A Monitor
// polls the registry on a fixed interval and flips is_active when a server
// goes quiet past FAILURE_TIMEOUT.
package registry
