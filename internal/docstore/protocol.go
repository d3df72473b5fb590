// Mapmark - Collaborative Raster Map Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mapmark

package docstore

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/mapmark/internal/models"
)

// WebSocket message types.
const (
	MessageSubscribe   = "subscribe"
	MessageUnsubscribe = "unsubscribe"
	MessageSnapshot    = "snapshot"
	MessageError       = "error"
	MessageChange      = "change"
	MessagePing        = "ping"
	MessagePong        = "pong"
)

// Message is the envelope for every WebSocket frame.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMessage encodes data into a typed envelope.
func NewMessage(typ string, data any) (Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s message: %w", typ, err)
	}
	return Message{Type: typ, Data: raw}, nil
}

// SubscribeRequest is the payload of subscribe and unsubscribe messages.
type SubscribeRequest struct {
	Project string      `json:"project"`
	Kind    models.Kind `json:"kind"`
}

// Collection returns the requested collection.
func (r SubscribeRequest) Collection() Collection {
	return Collection{Project: r.Project, Kind: r.Kind}
}

// Snapshot carries the full contents of a collection.
type Snapshot struct {
	Project   string      `json:"project"`
	Kind      models.Kind `json:"kind"`
	Documents []Document  `json:"documents"`
}

// Collection returns the collection the snapshot describes.
func (s Snapshot) Collection() Collection {
	return Collection{Project: s.Project, Kind: s.Kind}
}

// ErrorMessage is the payload of error messages.
type ErrorMessage struct {
	Project string      `json:"project,omitempty"`
	Kind    models.Kind `json:"kind,omitempty"`
	Message string      `json:"message"`
}

// AddResponse is the body returned for a created document.
type AddResponse struct {
	ID string `json:"id"`
}
