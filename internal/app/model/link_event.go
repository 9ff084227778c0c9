package model

import "time"

// LinkEvent records one step of a masked link's lifecycle.
type LinkEvent struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	Type       string    `json:"type" gorm:"size:16;not null;index"`
	LinkID     string    `json:"link_id" gorm:"size:36;index"`
	Client     string    `json:"client,omitempty" gorm:"size:16"`
	OSType     string    `json:"os_type,omitempty" gorm:"size:32"`
	IsWebView  bool      `json:"is_webview"`
	IP         string    `json:"ip,omitempty" gorm:"size:64"`
	UserAgent  string    `json:"user_agent,omitempty" gorm:"type:text"`
	OccurredAt time.Time `json:"occurred_at" gorm:"not null;index"`
}

const (
	LinkEventIssued   = "issued"
	LinkEventVisited  = "visited"
	LinkEventRejected = "rejected"
)

const (
	LinkStreamName       = "LINKS"
	LinkStreamSubjects   = "links.>"
	LinkSubjectPrefix    = "links."
	LinkConsumerName     = "link-event-writer"
	LinkStreamMaxBytes   = 1024 * 1024 * 100 // 100MB
	MaxEventUserAgentLen = 512
)

// Subject returns the JetStream subject the event is published on.
func (e LinkEvent) Subject() string {
	return LinkSubjectPrefix + e.Type
}
