// Package rpc carries envelopes between cluster members over Connect.
//
// Each envelope travels as a google.protobuf.Struct through the unary
// procedure ExchangeProcedure. The request body is the request envelope;
// the response body is the reply envelope for reply-expecting requests
// and an empty struct for one-way requests.
//
// Client is a transport.Ref for a remote coordinator. Handler is the
// http.Handler that exposes local coordinators to other members.
package rpc
