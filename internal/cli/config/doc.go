// Package config stores devmesh-cli profiles in ~/.devmesh/cli.yaml.
//
// A profile names a cluster member and the defaults used when a command
// omits --server, --device or --store.
package config
