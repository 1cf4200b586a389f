// Package shutdown runs cleanup hooks when devmesh-server is asked to stop.
//
// Hooks run in reverse registration order under one shared timeout, so
// components stop before the things they depend on.
package shutdown
