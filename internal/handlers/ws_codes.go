// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the session transport.
const (
	BadSubprotocolError = 3000 // Client connected without the "bang" subprotocol.
	DuplicatePeerError  = 3001 // Session already had a roster entry for the new peer id.
	ServerQuitCode      = 3002 // Server is shutting down; sent after INFO SERVERQUIT.
)
