// Package websocket pushes hub notifications to connected browsers.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/venom-hub/internal/domain"
)

// Message types
const (
	MessageTypeNotification = "notification"
	MessageTypeSubscribe    = "subscribe"
	MessageTypeUnsubscribe  = "unsubscribe"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypeError        = "error"
)

// Notification topics
const (
	TopicBuilds = "builds"
	TopicRaids  = "raids"
	TopicUsers  = "users"
)

// ValidTopic reports whether clients may subscribe to topic
func ValidTopic(topic string) bool {
	switch topic {
	case TopicBuilds, TopicRaids, TopicUsers:
		return true
	}
	return false
}

// Message represents a WebSocket message
type Message struct {
	Type      string      `json:"type"`
	Topic     string      `json:"topic,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub maintains the set of active clients and broadcasts notifications
type Hub struct {
	// Subscribed clients by topic
	clients map[string]map[*Client]bool

	// All connected clients
	allClients map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	broadcast   chan *Message
	subscribe   chan *subscriptionRequest
	unsubscribe chan *subscriptionRequest

	mu     sync.RWMutex
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

type subscriptionRequest struct {
	client *Client
	topic  string
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[string]map[*Client]bool),
		allClients:  make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		subscribe:   make(chan *subscriptionRequest, 64),
		unsubscribe: make(chan *subscriptionRequest, 64),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("WebSocket hub stopping")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.allClients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.allClients[client]; ok {
				delete(h.allClients, client)
				for topic, clients := range h.clients {
					if _, ok := clients[client]; ok {
						delete(clients, client)
						if len(clients) == 0 {
							delete(h.clients, topic)
						}
					}
				}
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "client_id", client.id)

		case req := <-h.subscribe:
			h.mu.Lock()
			if _, ok := h.clients[req.topic]; !ok {
				h.clients[req.topic] = make(map[*Client]bool)
			}
			h.clients[req.topic][req.client] = true
			h.mu.Unlock()
			h.logger.Debug("client subscribed", "client_id", req.client.id, "topic", req.topic)

		case req := <-h.unsubscribe:
			h.mu.Lock()
			if clients, ok := h.clients[req.topic]; ok {
				delete(clients, req.client)
				if len(clients) == 0 {
					delete(h.clients, req.topic)
				}
			}
			h.mu.Unlock()
			h.logger.Debug("client unsubscribed", "client_id", req.client.id, "topic", req.topic)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

// broadcastMessage sends a message to the topic's subscribers, or to every
// client when the message has no topic
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	targets := h.allClients
	if message.Topic != "" {
		targets = h.clients[message.Topic]
	}
	for client := range targets {
		h.offer(client, data)
	}
}

// offer queues data for a client without blocking the hub
func (h *Hub) offer(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		h.logger.Warn("client buffer full, skipping", "client_id", client.id)
	}
}

// reply sends a message to a single client
func (h *Hub) reply(client *Client, msg Message) {
	msg.Timestamp = time.Now()
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal reply", "error", err)
		return
	}
	h.offer(client, data)
}

func errorMessage(text string) Message {
	return Message{Type: MessageTypeError, Data: map[string]string{"error": text}}
}

// command applies a client command and returns the reply for it
func (h *Hub) command(client *Client, cmd ClientMessage) Message {
	switch cmd.Type {
	case MessageTypePing:
		return Message{Type: MessageTypePong}
	case MessageTypeSubscribe, MessageTypeUnsubscribe:
		if !ValidTopic(cmd.Topic) {
			return errorMessage("unknown topic " + cmd.Topic)
		}
		ack := Message{Topic: cmd.Topic, Data: map[string]string{"status": "ok"}}
		if cmd.Type == MessageTypeSubscribe {
			h.Subscribe(client, cmd.Topic)
			ack.Type = "subscribed"
		} else {
			h.Unsubscribe(client, cmd.Topic)
			ack.Type = "unsubscribed"
		}
		return ack
	}
	return errorMessage("unknown message type " + cmd.Type)
}

// Notify queues a notification for the subscribers of topic. An empty
// topic reaches every client.
func (h *Hub) Notify(topic string, n domain.Notification) {
	message := &Message{
		Type:      MessageTypeNotification,
		Topic:     topic,
		Data:      n,
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast channel full, dropping notification", "topic", topic)
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe adds a client to a topic
func (h *Hub) Subscribe(client *Client, topic string) {
	h.subscribe <- &subscriptionRequest{client: client, topic: topic}
}

// Unsubscribe removes a client from a topic
func (h *Hub) Unsubscribe(client *Client, topic string) {
	h.unsubscribe <- &subscriptionRequest{client: client, topic: topic}
}

// GetSubscriberCount returns the number of subscribers of a topic
func (h *Hub) GetSubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// GetTotalConnections returns the total number of connected clients
func (h *Hub) GetTotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}
