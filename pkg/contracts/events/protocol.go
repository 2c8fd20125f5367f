// Package events defines the messages pushed to dashboard clients over the
// event stream at /ws.
package events

import (
	"time"
)

// Protocol version
const (
	ProtocolVersion = "1.0"
	ProtocolName    = "fnopulse-events"
)

// MessageType names an event.
type MessageType string

const (
	// TypeConnection is sent once when a client connects.
	TypeConnection MessageType = "connection"
	// TypeDatasetStatus carries the dataset status after a load or reload.
	// Clients refetch their views when it reports ready.
	TypeDatasetStatus MessageType = "dataset_status"
	// TypeHeartbeat is accepted from clients and ignored.
	TypeHeartbeat MessageType = "heartbeat"
)

// Message is one event frame.
type Message struct {
	Version   string      `json:"version"`
	Type      MessageType `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewMessage stamps an event of type t.
func NewMessage(t MessageType, data interface{}) Message {
	return Message{
		Version:   ProtocolVersion,
		Type:      t,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// ConnectionData is the payload of TypeConnection.
type ConnectionData struct {
	Status            string `json:"status"`
	ClientID          string `json:"client_id"`
	HeartbeatInterval int    `json:"heartbeat_interval"` // seconds
}
