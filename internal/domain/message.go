package domain

import "time"

// Message is one entry of a ticket conversation, as delivered by the
// chat-platform history collaborator.
type Message struct {
	AuthorID    string    `json:"author_id"`
	AuthorName  string    `json:"author_name"`
	Timestamp   time.Time `json:"timestamp"`
	Content     string    `json:"content"`
	Attachments []string  `json:"attachments,omitempty"`
}
