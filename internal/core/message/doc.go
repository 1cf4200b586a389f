// Package message defines the wire protocol between a transaction proxy
// and the coordinator that owns a device.
//
// Outbound requests are ReadRequest, ExistsRequest, PutRequest,
// MergeRequest, DeleteRequest, CancelRequest and SubmitRequest, all
// carried as a Request with a Kind. Inbound replies are DataReply,
// EmptyReadReply, BooleanReply, SubmitAck and RemoteFailure.
//
// Every message travels inside an Envelope. Reply-expecting requests
// carry a non-zero correlation id which the coordinator echoes on its
// reply. Envelopes are encoded as protobuf Struct values, so they can
// cross a Connect RPC boundary without generated code.
package message
