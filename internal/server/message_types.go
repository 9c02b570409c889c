package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
const (
	// Client to server messages
	MessageTypeStartStandard  MessageType = "start_standard"
	MessageTypeStartRandom    MessageType = "start_random"
	MessageTypeSelectTile     MessageType = "select_tile"
	MessageTypeReturnToMenu   MessageType = "return_to_menu"
	MessageTypeClearScores    MessageType = "clear_scores"
	MessageTypeShowScores     MessageType = "show_scores"
	MessageTypePromptResponse MessageType = "prompt_response"
	MessageTypeAnnounceAck    MessageType = "announce_ack"

	// Server to client messages
	MessageTypeState    MessageType = "state"
	MessageTypePrompt   MessageType = "prompt"
	MessageTypeAnnounce MessageType = "announce"
	MessageTypeError    MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
