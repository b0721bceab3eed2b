package websocket

import "github.com/rs/zerolog/log"

// targetedMessage is a message addressed to one user's clients.
type targetedMessage struct {
	userID  string
	message []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
// Both maps are owned by the Run goroutine; every mutation and delivery goes
// through its channels.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Inbound messages from the clients for global broadcast.
	Broadcast chan []byte

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// Messages addressed to a single user's clients.
	targeted chan targetedMessage

	// A map of user IDs to the set of that user's connected clients.
	subscriptions map[string]map[*Client]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Broadcast:     make(chan []byte),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		targeted:      make(chan targetedMessage, 64),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

// Run starts the Hub's message processing loop.
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
		case message := <-h.Broadcast:
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
					h.removeSubscription(client)
				}
			}
		case tm := <-h.targeted:
			h.deliverTo(tm.userID, tm.message)
		}
	}
}

// BroadcastTo sends a message to all clients belonging to a specific user.
// It hands the message to the Run goroutine, so it is safe to call from
// request handlers. Messages are dropped if the queue is full.
func (h *Hub) BroadcastTo(userID string, message []byte) {
	select {
	case h.targeted <- targetedMessage{userID: userID, message: message}:
	default:
		log.Warn().Str("user_id", userID).Msg("Targeted message queue full, dropping")
	}
}

// deliverTo runs on the Run goroutine.
func (h *Hub) deliverTo(userID string, message []byte) {
	if subs, ok := h.subscriptions[userID]; ok {
		for client := range subs {
			select {
			case client.Send <- message:
			default:
				close(client.Send)
				delete(h.clients, client)
				delete(h.subscriptions[userID], client)
			}
		}
	}
}

func (h *Hub) addSubscription(client *Client, userID string) {
	if userID == "" {
		return
	}
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
