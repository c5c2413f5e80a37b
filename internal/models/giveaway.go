package models

import "time"

// Giveaway is a capacity-limited event with no buy-in.
type Giveaway struct {
	ID            int64      `json:"id"`
	ChatID        int64      `json:"chat_id,omitempty"`
	Slug          string     `json:"slug"`
	CreatorName   string     `json:"creator_name"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	SelectedImage string     `json:"selected_image"`
	Capacity      int        `json:"capacity"`
	Prize         string     `json:"prize"`
	DrawAt        *time.Time `json:"draw_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// GiveawayDraft is a finalized giveaway aggregate.
type GiveawayDraft struct {
	Name          string     `field:"name"`
	Description   string     `field:"description"`
	SelectedImage string     `field:"selectedImage"`
	Capacity      int        `field:"capacity"`
	Prize         string     `field:"prize"`
	DrawAt        *time.Time `field:"drawAt"`
}

// Entry is a name entered into a giveaway.
type Entry struct {
	GiveawayID int64     `json:"giveaway_id"`
	Name       string    `json:"name"`
	EnteredAt  time.Time `json:"entered_at"`
}
