// Package ws is the connection boundary. One websocket connection
// carries one user identity, supplied as the uid query parameter;
// connections without it are closed with code 4000. All message
// handling runs under that identity, so proxy calls anywhere in the
// call chain route to the caller's session.
package ws
