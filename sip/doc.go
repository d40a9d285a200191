// Package sip implements the signaling core of the Session Initiation
// Protocol as defined in RFC 3261 and related specifications.
//
// The stack is layered bottom-up: typed request/response messages with
// inbound/outbound envelopes, the four RFC 3261 transaction state
// machines behind a [TransactionLayer], dialogs, UAC/UAS request
// helpers with digest authentication, and a [UserAgentCore] that
// dispatches between them. On top of the core sit the call session
// machines ([Inviter], [Invitation]) and the refreshing clients
// ([Registerer], [Subscriber], [Publisher]).
//
// The network is abstracted behind the [Transport] interface: the
// package sends and receives structured messages and never opens
// sockets itself.
package sip
