// Package config defines the devmesh-server configuration.
//
// A ServerConfig starts from Default and is overlaid by confloader with
// the YAML file, DEVMESH_ environment variables and flags. Verify rejects
// configurations the server cannot start with.
package config
