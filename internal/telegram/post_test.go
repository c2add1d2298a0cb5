package telegram

import (
	"strings"
	"testing"

	"leadadmin/api/internal/config"
	"leadadmin/api/internal/store"
)

func testRouter(t *testing.T) *ChannelRouter {
	t.Helper()
	router, err := NewChannelRouter(config.Config{
		ChannelAccountingID: -1001000000001,
		ChannelLawID:        -1001000000002,
		ChannelEgovID:       -1001000000003,
	})
	if err != nil {
		t.Fatalf("NewChannelRouter() error = %v", err)
	}
	return router
}

func TestLabel(t *testing.T) {
	tests := []struct {
		spec store.Specialization
		want string
	}{
		{store.SpecializationAccounting, "Бухгалтера"},
		{store.SpecializationLaw, "Адвоката"},
		{store.SpecializationEgov, "EGOV"},
		{store.Specialization("UNKNOWN"), "Специалиста"},
	}
	for _, tt := range tests {
		if got := Label(tt.spec); got != tt.want {
			t.Errorf("Label(%s) = %q, want %q", tt.spec, got, tt.want)
		}
	}
}

func TestComposeRequestPostUnclaimed(t *testing.T) {
	req := store.Request{
		ID:             7,
		Name:           "Иван",
		City:           "Алматы",
		Description:    "Нужна консультация",
		Specialization: store.SpecializationLaw,
	}

	post := ComposeRequestPost(req, false, "")

	for _, fragment := range []string{
		"<b>Адвоката</b>",
		"Новая заявка (ID: 7) \"админ панель\"",
		"👤 <b>Имя:</b> Иван",
		"🏙 <b>Город:</b> Алматы",
		"📝 <b>Описание:</b> Нужна консультация",
	} {
		if !strings.Contains(post.Text, fragment) {
			t.Errorf("post missing %q:\n%s", fragment, post.Text)
		}
	}
	if post.ClaimPayload != "claim:7" {
		t.Errorf("expected claim payload claim:7, got %q", post.ClaimPayload)
	}
	if strings.Contains(post.Text, "Взята в работу") {
		t.Errorf("unclaimed post must not carry the claimed notice:\n%s", post.Text)
	}
}

func TestComposeRequestPostClaimed(t *testing.T) {
	req := store.Request{ID: 7, Specialization: store.SpecializationLaw}

	post := ComposeRequestPost(req, true, "ivan")
	if !strings.Contains(post.Text, "⚒ <b>Взята в работу:</b> @ivan") {
		t.Errorf("expected claimed notice with username:\n%s", post.Text)
	}
	if post.ClaimPayload != "" {
		t.Errorf("claimed post must not carry a claim button, got %q", post.ClaimPayload)
	}
}

func TestComposeRequestPostClaimedWithoutUsername(t *testing.T) {
	post := ComposeRequestPost(store.Request{ID: 7}, true, "")
	if !strings.Contains(post.Text, "Взята в работу:</b> специалистом") {
		t.Errorf("expected anonymous claimed notice:\n%s", post.Text)
	}
}

func TestComposeApprovalDM(t *testing.T) {
	spec := store.Specialist{
		ID:              5,
		Name:            "Мария",
		Specializations: []store.Specialization{store.SpecializationLaw, store.SpecializationEgov},
	}

	text := ComposeApprovalDM(spec, testRouter(t))

	if !strings.Contains(text, "Вы были одобрены как специалист") {
		t.Errorf("expected approval headline:\n%s", text)
	}
	if !strings.Contains(text, "• LAW") || !strings.Contains(text, "• EGOV") {
		t.Errorf("expected specialization bullets:\n%s", text)
	}
	if !strings.Contains(text, "https://t.me/c/1000000002") {
		t.Errorf("expected law channel link:\n%s", text)
	}
	if !strings.Contains(text, "/my_requests") {
		t.Errorf("expected command hint:\n%s", text)
	}
}

func TestComposeClaimedUpdateDM(t *testing.T) {
	req := store.Request{ID: 7, Specialization: store.SpecializationEgov}
	router := testRouter(t)

	moved := ComposeClaimedUpdateDM(req, true, router)
	if !strings.Contains(moved, "#7") || !strings.Contains(moved, "https://t.me/c/1000000003") {
		t.Errorf("expected relocation DM with new channel link, got %q", moved)
	}

	edited := ComposeClaimedUpdateDM(req, false, router)
	if !strings.Contains(edited, "#7") || !strings.Contains(edited, "изменена") {
		t.Errorf("expected edit DM, got %q", edited)
	}
}
