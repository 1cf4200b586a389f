// Package confloader loads DevMesh configuration with koanf.
//
// Sources, lowest priority first:
//
//  1. Defaults already present in the target struct
//  2. A YAML file
//  3. Environment variables (DEVMESH_ prefix)
//  4. A map, used for command-line flags
//
// Environment variables nest with a double underscore so that keys may
// keep single underscores: DEVMESH_NODE__RPC_ADDR sets node.rpc_addr.
//
// Watcher reports changes to the configuration file so that reloadable
// settings (the log level) can be applied without a restart.
package confloader
