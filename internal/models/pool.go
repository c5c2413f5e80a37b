package models

import "time"

// Pool is a stored pooled-prize event.
type Pool struct {
	ID                  int64      `json:"id"`
	ChatID              int64      `json:"chat_id,omitempty"`
	Kind                string     `json:"kind"`
	Slug                string     `json:"slug"`
	CreatorName         string     `json:"creator_name"`
	SelectedImage       string     `json:"selected_image"`
	Name                string     `json:"name"`
	Description         string     `json:"description"`
	RegistrationStart   *time.Time `json:"registration_start,omitempty"`
	RegistrationEnd     *time.Time `json:"registration_end,omitempty"`
	RegistrationEnabled bool       `json:"registration_enabled"`
	BuyIn               float64    `json:"buy_in"`
	SoftCap             int        `json:"soft_cap"`
	RulesLink           string     `json:"rules_link"`
	PayoutAddress       string     `json:"payout_address,omitempty"`
	TokenSymbol         string     `json:"token_symbol,omitempty"`
	Notified            bool       `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
}

// RegistrationOpen reports whether joins are accepted at now.
func (p Pool) RegistrationOpen(now time.Time) bool {
	if !p.RegistrationEnabled {
		return false
	}
	if p.RegistrationStart != nil && now.Before(*p.RegistrationStart) {
		return false
	}
	if p.RegistrationEnd != nil && !now.Before(*p.RegistrationEnd) {
		return false
	}
	return true
}

// PoolDraft is a finalized pool aggregate before the server assigns id,
// slug and creation time.
type PoolDraft struct {
	SelectedImage       string     `field:"selectedImage"`
	Name                string     `field:"name"`
	Description         string     `field:"description"`
	RegistrationStart   *time.Time `field:"registrationStart"`
	RegistrationEnd     *time.Time `field:"registrationEnd"`
	RegistrationEnabled bool       `field:"registrationEnabled"`
	BuyIn               float64    `field:"buyIn"`
	SoftCap             int        `field:"softCap"`
	RulesLink           string     `field:"rulesLink"`
	PayoutAddress       string     `field:"payoutAddress"`
	TokenSymbol         string     `field:"tokenSymbol"`
}

// Participant is a name registered in a pool.
type Participant struct {
	PoolID   int64     `json:"pool_id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
}

// PoolWithCount pairs a pool with its participant count.
type PoolWithCount struct {
	Pool         Pool `json:"pool"`
	Participants int  `json:"participants"`
	Filled       bool `json:"filled"`
}
