package types

// WSRequest is an inbound websocket message.
type WSRequest struct {
	Command string                 `json:"command"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// WSResponse is an outbound websocket message.
type WSResponse struct {
	Type      string      `json:"type"`
	UID       string      `json:"uid,omitempty"`
	Command   string      `json:"command,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp int64       `json:"timestamp,omitempty"`
	Error     string      `json:"error,omitempty"`
}
