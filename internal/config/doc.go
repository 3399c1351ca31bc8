// Package config encapsulates configuration for all dirtydocs commands
// (nameserver, storageserver, docsh).
//
// All components are expected to store their data and logs within a
// dedicated base directory. When loading the configuration, the first and
// only argument is the path to the base directory rather than the path to
// the configuration file. The designated directory is expected to contain a
// flat key-value file called 'config' that corresponds to the C struct of
// this package. Paths for the directory snapshot, per-SS data directories,
// and the propagation log for checkpoint archival are derived from the base
// directory and exposed as methods of C.
package config
