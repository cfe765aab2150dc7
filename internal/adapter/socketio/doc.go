// Package socketio implements the "socketio" relay client: a Socket.IO v2
// (Engine.IO v3) emitter over a raw WebSocket transport.
package socketio
