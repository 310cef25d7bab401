package websocket

import "github.com/rs/zerolog/log"

// userMessage targets every client subscribed to a single user.
type userMessage struct {
	userID string
	data   []byte
}

// Hub maintains the set of active clients and pushes todo-change
// messages to the owner's connections.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// Messages addressed to all of one user's clients.
	direct chan userMessage

	// A map of user IDs to the set of clients subscribed to them.
	subscriptions map[string]map[*Client]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		direct:        make(chan userMessage, 64),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

// Run starts the Hub's message processing loop. All access to the
// client and subscription maps happens on this goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			h.addSubscription(client, client.UserID)
			log.Info().Int("total_clients", len(h.clients)).Msg("Client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.removeSubscription(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case msg := <-h.direct:
			for client := range h.subscriptions[msg.userID] {
				select {
				case client.Send <- msg.data:
				default:
					close(client.Send)
					delete(h.clients, client)
					h.removeSubscription(client)
				}
			}
		}
	}
}

// BroadcastToUser sends a message to all clients subscribed to a user
// ID. Safe to call from any goroutine; drops the message if the hub's
// queue is full rather than blocking the caller.
func (h *Hub) BroadcastToUser(userID string, message []byte) {
	select {
	case h.direct <- userMessage{userID: userID, data: message}:
	default:
		log.Warn().Str("user_id", userID).Msg("Hub queue full, dropping message")
	}
}

func (h *Hub) addSubscription(client *Client, userID string) {
	if h.subscriptions[userID] == nil {
		h.subscriptions[userID] = make(map[*Client]bool)
	}
	h.subscriptions[userID][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	for userID, subs := range h.subscriptions {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, userID)
			}
		}
	}
}
