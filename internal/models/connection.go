package models

import "time"

const (
	ConnectionPending  = "PENDING"
	ConnectionAccepted = "ACCEPTED"
	ConnectionRejected = "REJECTED"
)

type Connection struct {
	ConnectionID string       `json:"id"`
	FromUserID   string       `json:"fromUserId"`
	ToUserID     string       `json:"toUserId"`
	Status       string       `json:"status"`
	CreatedAt    time.Time    `json:"createdAt"`
	FromUser     *UserSummary `json:"fromUser,omitempty"`
	ToUser       *UserSummary `json:"toUser,omitempty"`
}

// Other returns the user summary on the far side of the connection from
// the given user.
func (c *Connection) Other(userID string) *UserSummary {
	if c.FromUserID == userID {
		return c.ToUser
	}
	return c.FromUser
}
