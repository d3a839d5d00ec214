package dispatch

import (
	"fmt"
	"time"
)

// Outcome is the result of one delivery attempt.
type Outcome struct {
	At         time.Time
	Err        error
	CampaignID string
	Recipient  string
	Subject    string
	MessageID  string
	Index      int
}

// Result summarizes a finished campaign, successful or not.
type Result struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	CampaignID string    `json:"campaign_id"`
	Identity   string    `json:"identity"`
	Summary    string    `json:"summary"`
	Sent       int       `json:"sent"`    // Delivered by this campaign
	Total      int       `json:"total"`   // Recipients after normalization
	Skipped    int       `json:"skipped"` // Dropped as unsubscribed
	Count      int       `json:"count"`   // Identity's window count afterwards
	Cap        int       `json:"cap"`
}

// Ack is returned by Submit. Result is set only in ModeSync.
type Ack struct {
	Result     *Result `json:"result,omitempty"`
	CampaignID string  `json:"campaign_id"`
	Mode       Mode    `json:"mode"`
	Queued     int     `json:"queued"`
}

// Message is the operator-facing text for the acknowledgement.
func (a *Ack) Message() string {
	if a.Result != nil {
		return a.Result.Summary
	}
	return fmt.Sprintf("campaign accepted: %d recipient(s) queued", a.Queued)
}

func summary(count, limit int) string {
	return fmt.Sprintf("emails sent: %d/%d", count, limit)
}
