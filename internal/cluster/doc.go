// Package cluster decides which member coordinates each device.
//
// Members find each other over memberlist gossip; each one advertises the
// base URL of its RPC endpoint in its node metadata. Device ownership is a
// murmur3 consistent hash ring over the live members, so every member
// resolves a device to the same owner without a replicated log.
//
// Resolver turns a device name into a transport.Ref: a LocalRef in front
// of a Coordinator when this member owns the device, an rpc.Client
// otherwise.
package cluster
