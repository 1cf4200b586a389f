// Package domain defines the core domain models for DevMesh.
//
// Domain models are pure values without any IO dependencies or
// framework coupling. This package contains:
//
//   - DeviceID: identity of a mounted network device
//   - Store, Path, Node: addressing and content of a device data tree
//   - TxID, TransactionStatus: transaction identity and commit status
//   - RPCError: NETCONF-style classified protocol errors
//   - Errors: domain-specific error definitions
package domain
