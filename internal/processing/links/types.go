package links

import "time"

// Link is the single persisted entity: a short code pointing at a target URL.
type Link struct {
	Code        string     `json:"code"`
	Target      string     `json:"target"`
	Clicks      int64      `json:"clicks"`
	LastClicked *time.Time `json:"last_clicked"`
	CreatedAt   time.Time  `json:"created_at"`
}

type CreateLinkInput struct {
	Target string
	Code   string
}
