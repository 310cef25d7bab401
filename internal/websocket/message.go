package websocket

import "encoding/json"

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// NewTodoMessage marshals a todo-change notification, e.g. action
// "todo.created" with the todo as payload.
func NewTodoMessage(action string, payload interface{}) []byte {
	b, err := json.Marshal(Message{Action: action, Payload: payload})
	if err != nil {
		return nil
	}
	return b
}
