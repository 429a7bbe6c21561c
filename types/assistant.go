package types

// ChatRole identifies the author of a chat message
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one entry of the assistant conversation
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// SCPCommandRequest describes the copy the user wants a command for
type SCPCommandRequest struct {
	Source  string `json:"source"`
	Dest    string `json:"dest"`
	Host    string `json:"host"`
	User    string `json:"user"`
	Options string `json:"options,omitempty"`
}

// SCPCommand is a generated scp invocation with its explanation
type SCPCommand struct {
	Command      string `json:"command"`
	Explanation  string `json:"explanation"`
	SecurityNote string `json:"securityNote"`
}
