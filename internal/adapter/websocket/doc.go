// Package websocket implements the "centrifuge" relay client: an embedded
// Centrifuge hub that overlays connect to directly over WebSocket.
package websocket
