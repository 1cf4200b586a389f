// Package connection opens devmesh-cli sessions against a cluster member.
//
// A Session owns one rpc client to the member and a transaction broker
// for the selected device. Any member can serve any device; members that
// do not own the device forward to the owner.
package connection
