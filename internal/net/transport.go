// Package net carries room traffic between participants: a websocket
// hub run by the host, a client for joiners, mDNS discovery, and IP
// helpers for share links.
package net

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// EventKind discriminates transport events.
type EventKind int

const (
	// EventJoin fires when a peer connects.
	EventJoin EventKind = iota
	// EventMessage carries one inbound message.
	EventMessage
	// EventLeave fires when a peer disconnects.
	EventLeave
)

// Event is one transport occurrence. Events for all peers are
// delivered on a single channel so the consumer applies them strictly
// in receipt order from one goroutine.
type Event struct {
	Kind EventKind
	Peer string
	Data []byte
}

type peerConn struct {
	id     string
	conn   *websocket.Conn
	sendMu sync.Mutex
}

func (p *peerConn) send(data []byte) error {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub is the host side of the room channel. It accepts websocket
// connections, assigns each peer an identity, and relays frames.
type Hub struct {
	upgrader websocket.Upgrader
	events   chan Event

	mu    sync.RWMutex
	peers map[string]*peerConn
}

// NewHub creates a hub ready to serve.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			// LAN deployment; the room channel is not origin-gated.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		events: make(chan Event, 256),
		peers:  make(map[string]*peerConn),
	}
}

// Events returns the ordered stream of joins, messages, and leaves.
func (h *Hub) Events() <-chan Event { return h.events }

// ListenAndServe blocks serving the room websocket endpoint on the
// given port.
func (h *Hub) ListenAndServe(port int) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)
	addr := fmt.Sprintf(":%d", port)
	glog.Infof("room hub listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Warningf("upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}
	p := &peerConn{id: uuid.NewString(), conn: conn}

	h.mu.Lock()
	h.peers[p.id] = p
	h.mu.Unlock()
	glog.Infof("peer %s connected from %s", p.id, r.RemoteAddr)

	h.events <- Event{Kind: EventJoin, Peer: p.id}

	defer func() {
		h.mu.Lock()
		delete(h.peers, p.id)
		h.mu.Unlock()
		_ = conn.Close()
		glog.Infof("peer %s disconnected", p.id)
		h.events <- Event{Kind: EventLeave, Peer: p.id}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		h.events <- Event{Kind: EventMessage, Peer: p.id, Data: data}
	}
}

// SendTo delivers one frame to a single peer.
func (h *Hub) SendTo(peerID string, data []byte) error {
	h.mu.RLock()
	p, ok := h.peers[peerID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no such peer %s", peerID)
	}
	return p.send(data)
}

// Broadcast delivers one frame to every peer except the excluded one.
// Pass an empty exclude to reach everyone.
func (h *Hub) Broadcast(data []byte, exclude string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, p := range h.peers {
		if id == exclude {
			continue
		}
		if err := p.send(data); err != nil {
			glog.Warningf("send to %s failed: %v", id, err)
		}
	}
}

// PeerCount returns the number of connected peers.
func (h *Hub) PeerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Client is the joiner side of the room channel.
type Client struct {
	conn   *websocket.Conn
	sendMu sync.Mutex
	events chan Event
}

// Dial connects to a host's room endpoint, e.g. "192.168.1.10:8888".
func Dial(address string) (*Client, error) {
	url := fmt.Sprintf("ws://%s/ws", address)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Client{conn: conn, events: make(chan Event, 256)}
	go c.readLoop()
	return c, nil
}

// Events returns the ordered stream of inbound messages, terminated
// by an EventLeave when the connection drops.
func (c *Client) Events() <-chan Event { return c.events }

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			glog.Infof("disconnected from host: %v", err)
			c.events <- Event{Kind: EventLeave}
			return
		}
		c.events <- Event{Kind: EventMessage, Data: data}
	}
}

// Send delivers one frame to the host.
func (c *Client) Send(data []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close tears the connection down.
func (c *Client) Close() error {
	return c.conn.Close()
}
