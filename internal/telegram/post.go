package telegram

import (
	"fmt"
	"strings"

	"leadadmin/api/internal/store"
)

// Label returns the display name used as the post headline.
func Label(spec store.Specialization) string {
	switch spec {
	case store.SpecializationAccounting:
		return "Бухгалтера"
	case store.SpecializationLaw:
		return "Адвоката"
	case store.SpecializationEgov:
		return "EGOV"
	}
	return "Специалиста"
}

// Post is a composed channel message. ClaimPayload is the callback payload
// for the claim button; empty means no button is attached.
type Post struct {
	Text         string
	ClaimPayload string
}

// ComposeRequestPost renders the channel post for a request. Claimed
// requests carry a claimed-by notice instead of the claim button, so the
// post never invites a second claimant.
func ComposeRequestPost(req store.Request, claimed bool, claimedByUsername string) Post {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n\n", Label(req.Specialization))
	fmt.Fprintf(&b, "✉ <b>Новая заявка (ID: %d) \"админ панель\"</b>\n\n", req.ID)
	fmt.Fprintf(&b, "👤 <b>Имя:</b> %s\n", req.Name)
	fmt.Fprintf(&b, "🏙 <b>Город:</b> %s\n", req.City)
	fmt.Fprintf(&b, "📝 <b>Описание:</b> %s", req.Description)

	if claimed {
		who := "специалистом"
		if claimedByUsername != "" {
			who = "@" + claimedByUsername
		}
		fmt.Fprintf(&b, "\n\n⚒ <b>Взята в работу:</b> %s", who)
		return Post{Text: b.String()}
	}

	return Post{
		Text:         b.String(),
		ClaimPayload: fmt.Sprintf("claim:%d", req.ID),
	}
}

// ComposeApprovalDM renders the direct message a specialist receives on
// approval: the specialization set and a channel link per specialization.
func ComposeApprovalDM(spec store.Specialist, router *ChannelRouter) string {
	var b strings.Builder
	b.WriteString("🎉 <b>Вы были одобрены как специалист!</b>\n\n")

	b.WriteString("🧑‍💼 <b>Ваши специализации:</b>\n")
	for _, s := range spec.Specializations {
		fmt.Fprintf(&b, "• %s\n", s)
	}

	b.WriteString("\n📢 <b>Каналы с заявками:</b>\n")
	for _, s := range spec.Specializations {
		fmt.Fprintf(&b, "👉 <a href=\"%s\">Канал: %s</a>\n", router.Link(s), s)
	}

	b.WriteString("\nВы теперь можете использовать команду: /my_requests")
	return b.String()
}

// ComposeClaimedUpdateDM tells the claimant their request changed. On a
// relocation the old post is gone, so the new channel is linked.
func ComposeClaimedUpdateDM(req store.Request, moved bool, router *ChannelRouter) string {
	if moved {
		return fmt.Sprintf(
			"🔄 Ваша заявка #%d была перенесена в другой канал: <a href=\"%s\">%s</a>",
			req.ID, router.Link(req.Specialization), Label(req.Specialization),
		)
	}
	return fmt.Sprintf("✏️ Ваша заявка #%d была изменена администратором.", req.ID)
}
