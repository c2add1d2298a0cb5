package store

import (
	"strings"
	"time"
)

// Specialization is the closed routing domain. Values arriving over HTTP are
// validated with ParseSpecialization before they reach the store.
type Specialization string

const (
	SpecializationAccounting Specialization = "ACCOUNTING"
	SpecializationLaw        Specialization = "LAW"
	SpecializationEgov       Specialization = "EGOV"
)

// Specializations returns every known value, in a stable order.
func Specializations() []Specialization {
	return []Specialization{SpecializationAccounting, SpecializationLaw, SpecializationEgov}
}

func ParseSpecialization(raw string) (Specialization, bool) {
	switch Specialization(strings.ToUpper(strings.TrimSpace(raw))) {
	case SpecializationAccounting:
		return SpecializationAccounting, true
	case SpecializationLaw:
		return SpecializationLaw, true
	case SpecializationEgov:
		return SpecializationEgov, true
	}
	return "", false
}

// Status is free-form; only these two have workflow meaning.
const (
	StatusPending = "PENDING"
	StatusDone    = "DONE"
)

type Request struct {
	ID                int64          `json:"id"`
	Phone             string         `json:"phone"`
	Name              string         `json:"name"`
	City              string         `json:"city"`
	Description       string         `json:"description"`
	Specialization    Specialization `json:"specialization"`
	Status            string         `json:"status"`
	ClaimedByID       *int64         `json:"claimed_by_id"`
	ClaimedByUsername *string        `json:"claimed_by_username"`
	ClaimedAt         *time.Time     `json:"claimed_at"`
	CreatedAt         time.Time      `json:"created_at"`
	TgChatID          *int64         `json:"tg_chat_id"`
	TgMessageID       *int           `json:"tg_message_id"`
	CancelNote        *string        `json:"cancel_note"`
}

// HasChannelMessage reports whether a live channel post represents the
// request (both identifiers must be present).
func (r Request) HasChannelMessage() bool {
	return r.TgChatID != nil && r.TgMessageID != nil
}

type NewRequest struct {
	Phone          string
	Name           string
	City           string
	Description    string
	Specialization Specialization
	TgChatID       *int64
}

// RequestEdits is a sparse update: nil fields keep their stored values.
type RequestEdits struct {
	Phone          *string
	Name           *string
	City           *string
	Description    *string
	Specialization *Specialization
	Status         *string
	CancelNote     *string
}

func (e RequestEdits) IsEmpty() bool {
	return e.Phone == nil && e.Name == nil && e.City == nil && e.Description == nil &&
		e.Specialization == nil && e.Status == nil && e.CancelNote == nil
}

type Specialist struct {
	ID              int64            `json:"id"`
	TgID            *int64           `json:"tg_id"`
	Username        *string          `json:"username"`
	Name            string           `json:"name"`
	Phone           *string          `json:"phone"`
	IsApproved      bool             `json:"is_approved"`
	Specializations []Specialization `json:"specializations"`
}

type NewSpecialist struct {
	TgID            *int64
	Username        *string
	Name            string
	Phone           *string
	IsApproved      bool
	Specializations []Specialization
}

// The specializations column is a comma-delimited TEXT; it is normalized to
// a slice on every read.

func encodeSpecializations(specs []Specialization) string {
	parts := make([]string, 0, len(specs))
	for _, spec := range specs {
		parts = append(parts, string(spec))
	}
	return strings.Join(parts, ",")
}

func decodeSpecializations(raw string) []Specialization {
	specs := []Specialization{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if spec, ok := ParseSpecialization(part); ok {
			specs = append(specs, spec)
		}
	}
	return specs
}
