// Package localserver provides the local admin endpoint of a member.
//
// It listens on a Unix domain socket and speaks a line protocol: one
// command per line, one JSON reply per line. Access is governed by the
// socket's file permissions (0600).
//
// Commands:
//
//	status              ring membership and device ownership
//	loglevel [LEVEL]    show or change the log level
//	reload              re-read the configuration file
//	shutdown            start a graceful shutdown
package localserver
