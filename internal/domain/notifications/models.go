package notifications

import (
	"errors"
	"time"
)

var (
	ErrUnknownTemplate = errors.New("unknown notification template")
	ErrNoAddress       = errors.New("recipient has neither user nor email")
)

type Recipient struct {
	TenantID string `json:"tenantId"`
	UserID   string `json:"userId,omitempty"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
}

func (r Recipient) String() string {
	if r.Email != "" {
		return r.Email
	}
	return r.UserID
}

type Message struct {
	Recipient  Recipient
	TemplateID string
	Vars       map[string]string
}

type Notification struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}
