// Package tlsroots builds TLS settings for cluster RPC.
//
// Members authenticate each other with certificates signed by a shared
// CA. The member's own keypair is reloaded from disk when the files
// change, so certificates can be rotated without a restart.
package tlsroots
