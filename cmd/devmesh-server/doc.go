// Package main provides the entry point for devmesh-server.
//
// A devmesh-server process is one member of a DevMesh cluster. It
// gossips membership with its peers, owns the coordinators of the
// devices the ring assigns to it and forwards everything else to the
// owning member.
//
// Usage:
//
//	devmesh-server --config /etc/devmesh/server.yaml
//
// Every setting can be overridden from the environment, for example
// DEVMESH_NODE__SEEDS or DEVMESH_LOG__LEVEL.
package main
