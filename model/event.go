package model

import "time"

// Event types published on the message bus.
const (
	EventMemeGenerated = "generated"
	EventMemeFavorited = "favorited"
	EventMemeDeleted   = "deleted"
)

// MemeEvent is the payload published when a meme changes.
type MemeEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	MemeID    int64     `json:"memeId"`
	Meme      *Meme     `json:"meme,omitempty"`
	Favorite  *bool     `json:"isFavorite,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

// GenerateJob is an asynchronous generation request received over NATS.
type GenerateJob struct {
	RequestID string          `json:"requestId"`
	Request   GenerateRequest `json:"request"`
}

// GenerateJobResult is published once a GenerateJob has been processed.
type GenerateJobResult struct {
	RequestID   string          `json:"requestId"`
	Success     bool            `json:"success"`
	Result      *GenerateResult `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	ProcessedAt time.Time       `json:"processedAt"`
}
