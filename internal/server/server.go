// ABOUTME: Cuecast hub: WebSocket broadcast relay and attribute service
// ABOUTME: Manages participant connections, roster, and entity storage
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cuecast/cuecast-go/internal/discovery"
	"github.com/cuecast/cuecast-go/internal/protocol"
	"github.com/cuecast/cuecast-go/internal/store"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Config holds hub configuration
type Config struct {
	Port       int    `env:"CUECAST_PORT"`
	Name       string `env:"CUECAST_NAME"`
	DataDir    string `env:"CUECAST_DATA_DIR"`
	EnableMDNS bool   `env:"CUECAST_MDNS"`
	Debug      bool   `env:"CUECAST_DEBUG"`
}

// Server is the cuecast hub
type Server struct {
	config   Config
	serverID string

	upgrader websocket.Upgrader

	httpServer *http.Server
	mux        *http.ServeMux

	// Participant management; joinOrder keeps roster enumeration stable
	clients   map[string]*Client
	joinOrder []string
	clientsMu sync.RWMutex

	// Entity attribute store (persistence collaborator)
	attrs *store.FileStore

	mdnsManager *discovery.Manager

	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// Client represents one connected participant
type Client struct {
	ID        string
	Name      string
	Role      string
	Persona   string
	Ownership map[string]int
	Conn      *websocket.Conn

	sendChan chan protocol.Message
}

// New creates a hub instance
func New(config Config) (*Server, error) {
	if err := os.MkdirAll(filepath.Join(config.DataDir, "audio"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	attrs, err := store.NewFileStore(filepath.Join(config.DataDir, "attributes.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to open attribute store: %w", err)
	}

	mux := http.NewServeMux()

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		mux:      mux,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Trusted local network deployment; non-browser clients
				// carry no Origin header at all
				return true
			},
		},
		clients:  make(map[string]*Client),
		attrs:    attrs,
		stopChan: make(chan struct{}),
	}

	s.mux.HandleFunc("/cuecast", s.handleWebSocket)
	s.mux.HandleFunc("/upload", s.handleUpload)
	s.mux.Handle("/audio/", http.StripPrefix("/audio/",
		http.FileServer(http.Dir(filepath.Join(config.DataDir, "audio")))))

	return s, nil
}

// Start runs the hub until Stop is called or the listener fails
func (s *Server) Start() error {
	log.Printf("Hub starting: %s (ID: %s)", s.config.Name, s.serverID)

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
		})
		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		}
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("WebSocket hub listening on %s", addr)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-s.stopChan:
		log.Printf("Hub shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
	}

	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.wg.Wait()
	log.Printf("Hub stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Handler exposes the hub's HTTP routes, mainly for tests that mount
// the hub on their own listener
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Stop stops the hub
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// handleWebSocket upgrades and manages a participant connection
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New connection from %s", r.RemoteAddr)
	s.handleConnection(conn)
}

// handleConnection runs the handshake and message loop for one participant
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		log.Printf("Rejecting connection during shutdown")
		return
	}
	s.shutdownMu.RUnlock()

	// Wait for client/hello
	_, data, err := conn.ReadMessage()
	if err != nil {
		log.Printf("Error reading hello: %v", err)
		return
	}

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return
	}
	if msg.Type != "client/hello" {
		log.Printf("Expected client/hello, got %s", msg.Type)
		return
	}

	var hello protocol.ClientHello
	if err := decodePayload(msg.Payload, &hello); err != nil {
		log.Printf("Error unmarshaling client hello: %v", err)
		return
	}

	if hello.ParticipantID == "" {
		log.Printf("Client hello missing participant ID")
		return
	}
	if hello.Name == "" {
		log.Printf("Client hello missing name")
		return
	}
	if hello.Role == "" {
		hello.Role = "player"
	}

	log.Printf("Client hello: %s (ID: %s, role: %s, persona: %q)",
		hello.Name, hello.ParticipantID, hello.Role, hello.Persona)

	client := &Client{
		ID:        hello.ParticipantID,
		Name:      hello.Name,
		Role:      hello.Role,
		Persona:   hello.Persona,
		Ownership: hello.Ownership,
		Conn:      conn,
		sendChan:  make(chan protocol.Message, 100),
	}

	// Register atomically, rejecting a duplicate identity
	s.clientsMu.Lock()
	if existing, exists := s.clients[client.ID]; exists {
		s.clientsMu.Unlock()
		log.Printf("Participant %s already connected (name: %s), rejecting duplicate", client.ID, existing.Name)

		errorMsg := protocol.Message{
			Type: "server/error",
			Payload: protocol.ServerError{
				Error:   "duplicate_participant_id",
				Message: "Participant ID already connected",
			},
		}
		if data, err := json.Marshal(errorMsg); err == nil {
			conn.WriteMessage(websocket.TextMessage, data)
		}
		return
	}
	s.clients[client.ID] = client
	s.joinOrder = append(s.joinOrder, client.ID)
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, client.ID)
		for i, id := range s.joinOrder {
			if id == client.ID {
				s.joinOrder = append(s.joinOrder[:i], s.joinOrder[i+1:]...)
				break
			}
		}
		s.clientsMu.Unlock()
		close(client.sendChan)
		log.Printf("Participant disconnected: %s", client.Name)
		s.broadcastRoster()
	}()

	// Send server/hello
	if err := s.send(client, "server/hello", protocol.ServerHello{
		ServerID: s.serverID,
		Name:     s.config.Name,
		Version:  protocol.ProtocolVersion,
	}); err != nil {
		log.Printf("Error sending server hello: %v", err)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(client)
	}()

	s.broadcastRoster()

	// Read messages until the connection drops
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
		s.handleClientMessage(client, data)
	}
}

// clientWriter drains the client's send channel onto the wire
func (s *Server) clientWriter(client *Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case msg, ok := <-client.sendChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("Error marshaling message: %v", err)
				continue
			}
			client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("Error writing message: %v", err)
				return
			}

		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}

// handleClientMessage routes messages from participants
func (s *Server) handleClientMessage(client *Client, data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return
	}

	switch msg.Type {
	case "channel/broadcast":
		s.handleBroadcast(client, msg.Payload)
	case "attr/get":
		s.handleAttrGet(client, msg.Payload)
	case "attr/set":
		s.handleAttrSet(client, msg.Payload)
	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}

// handleBroadcast relays a named-channel payload to every connected
// participant, the origin included. The transport is self-delivering;
// receivers filter on the addressed target themselves.
func (s *Server) handleBroadcast(client *Client, payload interface{}) {
	var bcast protocol.Broadcast
	if err := decodePayload(payload, &bcast); err != nil {
		log.Printf("Error unmarshaling broadcast: %v", err)
		return
	}

	// The hub, not the sender, vouches for the origin identity
	bcast.Origin = client.ID

	if s.config.Debug {
		log.Printf("[DEBUG] Relaying broadcast on %s from %s (%d bytes)",
			bcast.Channel, bcast.Origin, len(bcast.Payload))
	}

	s.clientsMu.RLock()
	targets := make([]*Client, 0, len(s.clients))
	for _, id := range s.joinOrder {
		targets = append(targets, s.clients[id])
	}
	s.clientsMu.RUnlock()

	for _, target := range targets {
		if err := s.send(target, "channel/broadcast", bcast); err != nil {
			log.Printf("Dropping broadcast for %s: %v", target.Name, err)
		}
	}
}

// handleAttrGet serves an attribute read from the entity store
func (s *Server) handleAttrGet(client *Client, payload interface{}) {
	var req protocol.AttrGet
	if err := decodePayload(payload, &req); err != nil {
		log.Printf("Error unmarshaling attr/get: %v", err)
		return
	}

	result := protocol.AttrResult{RequestID: req.RequestID}
	value, version, ok, err := s.attrs.Get(req.Entity, req.Key)
	if err != nil {
		result.Error = err.Error()
	} else {
		result.Value = value
		result.Version = version
		result.Found = ok
	}

	if err := s.send(client, "attr/result", result); err != nil {
		log.Printf("Error sending attr result: %v", err)
	}
}

// handleAttrSet applies an attribute write, honoring the version token
func (s *Server) handleAttrSet(client *Client, payload interface{}) {
	var req protocol.AttrSet
	if err := decodePayload(payload, &req); err != nil {
		log.Printf("Error unmarshaling attr/set: %v", err)
		return
	}

	result := protocol.AttrResult{RequestID: req.RequestID}
	if err := s.attrs.Set(req.Entity, req.Key, req.Value, req.Version); err != nil {
		result.Error = err.Error()
	} else {
		result.Found = true
		result.Version = req.Version + 1
	}

	if err := s.send(client, "attr/result", result); err != nil {
		log.Printf("Error sending attr result: %v", err)
	}
}

// broadcastRoster pushes the current roster snapshot to everyone
func (s *Server) broadcastRoster() {
	s.clientsMu.RLock()
	update := protocol.RosterUpdate{
		Participants: make([]protocol.Participant, 0, len(s.joinOrder)),
	}
	targets := make([]*Client, 0, len(s.joinOrder))
	for _, id := range s.joinOrder {
		c := s.clients[id]
		update.Participants = append(update.Participants, protocol.Participant{
			ID:        c.ID,
			Name:      c.Name,
			Role:      c.Role,
			Persona:   c.Persona,
			Ownership: c.Ownership,
		})
		targets = append(targets, c)
	}
	s.clientsMu.RUnlock()

	for _, target := range targets {
		if err := s.send(target, "roster/update", update); err != nil {
			log.Printf("Dropping roster update for %s: %v", target.Name, err)
		}
	}
}

// send queues a JSON message for the client's writer
func (s *Server) send(client *Client, msgType string, payload interface{}) error {
	msg := protocol.Message{
		Type:    msgType,
		Payload: payload,
	}

	select {
	case client.sendChan <- msg:
		return nil
	default:
		return fmt.Errorf("client send buffer full")
	}
}

// decodePayload re-marshals an envelope payload into a typed struct
func decodePayload(payload interface{}, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
