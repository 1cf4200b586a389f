// Package datastore keeps device data trees in Badger.
//
// Every node is one key:
//
//	<device> NUL <store> NUL <segment> NUL <segment> ...
//
// holding the node's value as a protobuf StringValue. Containers hold an
// empty value. A subtree is rebuilt by scanning the node's key prefix;
// NUL sorts before every other byte, so parents are visited before their
// children.
package datastore
