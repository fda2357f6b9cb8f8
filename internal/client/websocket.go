// ABOUTME: WebSocket client for hub communication
// ABOUTME: Provides the broadcast transport and remote attribute store
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cuecast/cuecast-go/internal/protocol"
	"github.com/cuecast/cuecast-go/internal/session"
	"github.com/cuecast/cuecast-go/internal/store"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// attrTimeout bounds one attribute round-trip to the hub
const attrTimeout = 5 * time.Second

// Config holds client configuration
type Config struct {
	ServerAddr    string
	ParticipantID string
	Name          string
	Role          string
	Persona       string
	Ownership     map[string]int
}

// Client is a hub connection. It implements the dispatch channel's
// Transport and the registry's store.Attributes, both over the same
// WebSocket.
type Client struct {
	config Config
	conn   *websocket.Conn

	mu        sync.RWMutex
	connected bool

	writeMu sync.Mutex

	subsMu sync.Mutex
	subs   map[string][]func(origin string, payload []byte)

	pendingMu sync.Mutex
	pending   map[string]chan protocol.AttrResult

	roster *session.Roster

	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient creates a hub client
func NewClient(config Config) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:  config,
		subs:    make(map[string][]func(string, []byte)),
		pending: make(map[string]chan protocol.AttrResult),
		roster:  session.NewRoster(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Connect establishes the WebSocket connection and performs the handshake
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: "/cuecast"}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	return nil
}

// handshake exchanges hello messages with the hub
func (c *Client) handshake() error {
	hello := protocol.ClientHello{
		ParticipantID: c.config.ParticipantID,
		Name:          c.config.Name,
		Version:       protocol.ProtocolVersion,
		Role:          c.config.Role,
		Persona:       c.config.Persona,
		Ownership:     c.config.Ownership,
	}

	if err := c.sendJSON(protocol.Message{Type: "client/hello", Payload: hello}); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}
	if msg.Type == "server/error" {
		var serr protocol.ServerError
		decodePayload(msg.Payload, &serr)
		return fmt.Errorf("hub rejected connection: %s", serr.Message)
	}
	if msg.Type != "server/hello" {
		return fmt.Errorf("expected server/hello, got %s", msg.Type)
	}

	log.Printf("Handshake complete with hub")
	return nil
}

// Broadcast sends a named-channel payload to every connected
// participant through the hub (fire-and-forget)
func (c *Client) Broadcast(channel string, payload []byte) error {
	msg := protocol.Message{
		Type: "channel/broadcast",
		Payload: protocol.Broadcast{
			Channel: channel,
			Origin:  c.config.ParticipantID,
			Payload: payload,
		},
	}
	return c.sendJSON(msg)
}

// Subscribe registers a handler for payloads on the named channel
func (c *Client) Subscribe(channel string, handler func(origin string, payload []byte)) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	c.subs[channel] = append(c.subs[channel], handler)
}

// Get reads an entity attribute from the hub's store
func (c *Client) Get(entity, key string) ([]byte, int64, bool, error) {
	req := protocol.AttrGet{
		RequestID: uuid.New().String(),
		Entity:    entity,
		Key:       key,
	}

	result, err := c.roundTrip(req.RequestID, protocol.Message{Type: "attr/get", Payload: req})
	if err != nil {
		return nil, 0, false, err
	}
	if result.Error != "" {
		return nil, 0, false, fmt.Errorf("attribute read failed: %s", result.Error)
	}
	return result.Value, result.Version, result.Found, nil
}

// Set writes an entity attribute through the hub, carrying the
// caller's version token
func (c *Client) Set(entity, key string, value []byte, version int64) error {
	req := protocol.AttrSet{
		RequestID: uuid.New().String(),
		Entity:    entity,
		Key:       key,
		Value:     value,
		Version:   version,
	}

	result, err := c.roundTrip(req.RequestID, protocol.Message{Type: "attr/set", Payload: req})
	if err != nil {
		return err
	}
	if result.Error != "" {
		// Surface conflicts as the sentinel so retry loops work remotely
		if strings.Contains(result.Error, store.ErrVersionConflict.Error()) {
			return store.ErrVersionConflict
		}
		return fmt.Errorf("attribute write failed: %s", result.Error)
	}
	return nil
}

// roundTrip sends a request and waits for its attr/result
func (c *Client) roundTrip(requestID string, msg protocol.Message) (protocol.AttrResult, error) {
	ch := make(chan protocol.AttrResult, 1)

	c.pendingMu.Lock()
	c.pending[requestID] = ch
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, requestID)
		c.pendingMu.Unlock()
	}()

	if err := c.sendJSON(msg); err != nil {
		return protocol.AttrResult{}, err
	}

	select {
	case result := <-ch:
		return result, nil
	case <-time.After(attrTimeout):
		return protocol.AttrResult{}, fmt.Errorf("attribute request timed out")
	case <-c.ctx.Done():
		return protocol.AttrResult{}, fmt.Errorf("connection closed")
	}
}

// Roster returns the client's live roster view
func (c *Client) Roster() *session.Roster {
	return c.roster
}

// sendJSON serializes one message onto the wire
func (c *Client) sendJSON(msg protocol.Message) error {
	c.mu.RLock()
	connected := c.connected
	conn := c.conn
	c.mu.RUnlock()

	if !connected {
		return fmt.Errorf("not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

// readMessages reads and routes incoming messages until close
func (c *Client) readMessages() {
	defer c.Close()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Printf("Read error: %v", err)
			return
		}

		c.handleMessage(data)
	}
}

// handleMessage routes one hub message
func (c *Client) handleMessage(data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Failed to parse message: %v", err)
		return
	}

	switch msg.Type {
	case "channel/broadcast":
		var bcast protocol.Broadcast
		if err := decodePayload(msg.Payload, &bcast); err != nil {
			log.Printf("Failed to parse broadcast: %v", err)
			return
		}
		c.deliver(bcast)

	case "roster/update":
		var update protocol.RosterUpdate
		if err := decodePayload(msg.Payload, &update); err != nil {
			log.Printf("Failed to parse roster update: %v", err)
			return
		}
		participants := make([]session.Participant, 0, len(update.Participants))
		for _, p := range update.Participants {
			participants = append(participants, session.FromProtocol(p))
		}
		c.roster.Replace(participants)

	case "attr/result":
		var result protocol.AttrResult
		if err := decodePayload(msg.Payload, &result); err != nil {
			log.Printf("Failed to parse attr result: %v", err)
			return
		}
		c.pendingMu.Lock()
		ch, ok := c.pending[result.RequestID]
		c.pendingMu.Unlock()
		if ok {
			select {
			case ch <- result:
			default:
			}
		}

	case "server/error":
		var serr protocol.ServerError
		decodePayload(msg.Payload, &serr)
		log.Printf("Hub error: %s (%s)", serr.Message, serr.Error)

	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}

// deliver fans a broadcast out to the channel's subscribers
func (c *Client) deliver(bcast protocol.Broadcast) {
	c.subsMu.Lock()
	handlers := append([]func(string, []byte){}, c.subs[bcast.Channel]...)
	c.subsMu.Unlock()

	for _, h := range handlers {
		h(bcast.Origin, bcast.Payload)
	}
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		log.Printf("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// decodePayload re-marshals an envelope payload into a typed struct
func decodePayload(payload interface{}, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
