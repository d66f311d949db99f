package model

// WebSocket server message kinds. The union is closed: every push a client
// can receive is one of these three shapes.
const (
	MessageStatus     = "status"
	MessageSubscribed = "subscribed"
	MessageLogEntry   = "logEntry"
)

// ServerMessage is the wire envelope for all server-to-client pushes.
type ServerMessage struct {
	Type     string     `json:"type"`
	Status   string     `json:"status,omitempty"`
	FileName string     `json:"fileName,omitempty"`
	Data     *LogRecord `json:"data,omitempty"`
}

// StatusMessage announces connection state ("connected").
func StatusMessage(status string) ServerMessage {
	return ServerMessage{Type: MessageStatus, Status: status}
}

// SubscribedMessage acknowledges a subscription to the named file.
func SubscribedMessage(fileName string) ServerMessage {
	return ServerMessage{Type: MessageSubscribed, FileName: fileName}
}

// LogEntryMessage carries one new or updated record.
func LogEntryMessage(rec LogRecord) ServerMessage {
	return ServerMessage{Type: MessageLogEntry, Data: &rec}
}

// ClientMessage is the only control message clients send: a subscribe
// request naming the file whose live tail they want.
type ClientMessage struct {
	Type   string `json:"type"`
	FileID string `json:"fileId"`
}
