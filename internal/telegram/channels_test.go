package telegram

import (
	"testing"

	"leadadmin/api/internal/config"
	"leadadmin/api/internal/store"
)

func TestNewChannelRouterRequiresAllChannels(t *testing.T) {
	_, err := NewChannelRouter(config.Config{
		ChannelAccountingID: -1001000000001,
		ChannelLawID:        -1001000000002,
	})
	if err == nil {
		t.Fatal("expected error for missing egov channel")
	}
}

func TestChannelFor(t *testing.T) {
	router := testRouter(t)
	if got := router.ChannelFor(store.SpecializationAccounting); got != -1001000000001 {
		t.Errorf("ChannelFor(ACCOUNTING) = %d", got)
	}
	if got := router.ChannelFor(store.SpecializationEgov); got != -1001000000003 {
		t.Errorf("ChannelFor(EGOV) = %d", got)
	}
}

func TestLinkStripsPrivateChannelPrefix(t *testing.T) {
	router := testRouter(t)
	if got := router.Link(store.SpecializationLaw); got != "https://t.me/c/1000000002" {
		t.Errorf("Link(LAW) = %q", got)
	}
}
