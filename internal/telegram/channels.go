// Package telegram holds the outbound Bot API integration: the channel
// router, post composition, the publishing gateway, and the specialist
// notifier.
package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"leadadmin/api/internal/config"
	"leadadmin/api/internal/store"
)

// ChannelRouter maps a specialization to the channel its posts go to.
// Built once at startup and read-only afterwards.
type ChannelRouter struct {
	channels map[store.Specialization]int64
}

// NewChannelRouter fails when any specialization lacks a configured channel:
// an unroutable enum value is a configuration error, not a runtime one.
func NewChannelRouter(cfg config.Config) (*ChannelRouter, error) {
	channels := map[store.Specialization]int64{
		store.SpecializationAccounting: cfg.ChannelAccountingID,
		store.SpecializationLaw:        cfg.ChannelLawID,
		store.SpecializationEgov:       cfg.ChannelEgovID,
	}
	for _, spec := range store.Specializations() {
		if channels[spec] == 0 {
			return nil, fmt.Errorf("no channel configured for specialization %s", spec)
		}
	}
	return &ChannelRouter{channels: channels}, nil
}

func (r *ChannelRouter) ChannelFor(spec store.Specialization) int64 {
	return r.channels[spec]
}

// Link renders the t.me deep link for a specialization's channel. Private
// channel ids carry a -100 prefix that the link format drops.
func (r *ChannelRouter) Link(spec store.Specialization) string {
	id := strconv.FormatInt(r.channels[spec], 10)
	return "https://t.me/c/" + strings.TrimPrefix(id, "-100")
}
