package service

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToOwner(sessionID string, msgType string, payload interface{})
	BroadcastToParticipant(sessionID, participantID string, msgType string, payload interface{})
	// BroadcastToAll reaches the owner and every participant.
	BroadcastToAll(sessionID string, msgType string, payload interface{})
	DisconnectSession(sessionID string)
}
