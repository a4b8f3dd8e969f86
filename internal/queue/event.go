// Package queue defines the messages exchanged over RabbitMQ, the publisher
// used by the services and the audit consumer.
package queue

// Event types carried in the Type field of every message.
const (
    TypeStateChanged  = "mercadillo.state_changed"
    TypeSyncCompleted = "sync.completed"
)

// StateChangedEvent is published whenever a mercadillo moves to another
// lifecycle state, whether through recomputation or an explicit action.
type StateChangedEvent struct {
    Type         string `json:"type"`
    MercadilloID string `json:"mercadillo_id"`
    UserID       uint64 `json:"user_id"`
    Name         string `json:"name"`
    Date         string `json:"date"`
    From         string `json:"from"`
    To           string `json:"to"`
    Trigger      string `json:"trigger"`
    ChangedAt    string `json:"changed_at"`
}

// SyncCompletedEvent summarises one soft sync run of a user.
type SyncCompletedEvent struct {
    Type        string `json:"type"`
    UserID      uint64 `json:"user_id"`
    Pushed      int    `json:"pushed"`
    Pulled      int    `json:"pulled"`
    Errors      int    `json:"errors"`
    Attempts    int    `json:"attempts"`
    CompletedAt string `json:"completed_at"`
}

// envelope is decoded first so the consumer can dispatch on Type.
type envelope struct {
    Type string `json:"type"`
}
