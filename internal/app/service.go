package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"

	"leadadmin/api/internal/config"
	"leadadmin/api/internal/search"
	"leadadmin/api/internal/store"
	"leadadmin/api/internal/telegram"
)

type dataStore interface {
	ListRequests(context.Context) ([]store.Request, error)
	GetRequest(context.Context, int64) (store.Request, error)
	InsertRequest(context.Context, store.NewRequest) (store.Request, error)
	UpdateRequest(context.Context, int64, store.RequestEdits) (store.Request, error)
	DeleteRequest(context.Context, int64) (bool, error)
	SaveChannelMessage(ctx context.Context, id int64, messageID int, chatID int64, sender string) error
	ListSpecialists(context.Context) ([]store.Specialist, error)
	GetSpecialist(context.Context, int64) (store.Specialist, error)
	InsertSpecialist(context.Context, store.NewSpecialist) (store.Specialist, error)
	UpdateSpecialist(context.Context, int64, store.NewSpecialist) (store.Specialist, error)
	DeleteSpecialist(context.Context, int64) (bool, error)
	ApproveSpecialist(context.Context, int64) error
	Ping(ctx context.Context) error
}

type gateway interface {
	Send(ctx context.Context, chatID int64, text, claimPayload string) (int, error)
	Edit(ctx context.Context, chatID int64, messageID int, text, claimPayload string) error
	Delete(ctx context.Context, chatID int64, messageID int) error
}

type notifier interface {
	Notify(ctx context.Context, tgID int64, text string) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	gateway  gateway
	notifier notifier
	router   *telegram.ChannelRouter
	search   *search.Service
}

func New(cfg config.Config, dataStore *store.PostgresStore, gw *telegram.BotGateway, nt *telegram.BotNotifier, router *telegram.ChannelRouter, searchService *search.Service) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		gateway:  gw,
		notifier: nt,
		router:   router,
		search:   searchService,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ── Requests ──

type CreateRequestInput struct {
	Phone          string `json:"phone"`
	Name           string `json:"name"`
	City           string `json:"city"`
	Description    string `json:"description"`
	Specialization string `json:"specialization"`
	TgChatID       *int64 `json:"tg_chat_id"`
}

// RequestEditsInput is the loose partial body accepted by update endpoints.
// Absent fields keep their stored values.
type RequestEditsInput struct {
	Phone          *string `json:"phone"`
	Name           *string `json:"name"`
	City           *string `json:"city"`
	Description    *string `json:"description"`
	Specialization *string `json:"specialization"`
	Status         *string `json:"status"`
	CancelNote     *string `json:"cancel_note"`
}

func (in RequestEditsInput) toEdits() (store.RequestEdits, error) {
	edits := store.RequestEdits{
		Phone:       in.Phone,
		Name:        in.Name,
		City:        in.City,
		Description: in.Description,
		Status:      in.Status,
		CancelNote:  in.CancelNote,
	}
	if in.Specialization != nil {
		spec, ok := store.ParseSpecialization(*in.Specialization)
		if !ok {
			return store.RequestEdits{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
				"specialization must be one of ACCOUNTING, LAW, EGOV", nil)
		}
		edits.Specialization = &spec
	}
	return edits, nil
}

func (s *Service) ListRequests(ctx context.Context) ([]store.Request, error) {
	return s.store.ListRequests(ctx)
}

func (s *Service) GetRequest(ctx context.Context, id int64) (store.Request, error) {
	request, err := s.store.GetRequest(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Request{}, domainError(http.StatusNotFound, "REQUEST_NOT_FOUND", "Request not found", nil)
	}
	return request, err
}

func (s *Service) CreateRequest(ctx context.Context, in CreateRequestInput) (store.Request, error) {
	spec, ok := store.ParseSpecialization(in.Specialization)
	if !ok {
		return store.Request{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
			"specialization must be one of ACCOUNTING, LAW, EGOV", nil)
	}
	created, err := s.store.InsertRequest(ctx, store.NewRequest{
		Phone:          in.Phone,
		Name:           in.Name,
		City:           in.City,
		Description:    in.Description,
		Specialization: spec,
		TgChatID:       in.TgChatID,
	})
	if err != nil {
		return store.Request{}, domainError(http.StatusInternalServerError, "CREATE_FAILED", "Failed to create request", nil)
	}
	s.indexRequest(created)
	return created, nil
}

// UpdateRequest is the plain CRUD update: no publish side effects, no edit
// policy. The channel post is only touched through PublishUpdate.
func (s *Service) UpdateRequest(ctx context.Context, id int64, in RequestEditsInput) (store.Request, error) {
	edits, err := in.toEdits()
	if err != nil {
		return store.Request{}, err
	}
	updated, err := s.store.UpdateRequest(ctx, id, edits)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Request{}, domainError(http.StatusNotFound, "REQUEST_NOT_FOUND", "Request not found", nil)
	}
	if err != nil {
		return store.Request{}, domainError(http.StatusInternalServerError, "UPDATE_FAILED", "Failed to update request", nil)
	}
	s.indexRequest(updated)
	return updated, nil
}

// DeleteRequest hard-deletes the row. The channel post, if any, is left
// behind; cleanup of orphaned posts is a bot-side concern.
func (s *Service) DeleteRequest(ctx context.Context, id int64) error {
	deleted, err := s.store.DeleteRequest(ctx, id)
	if err != nil {
		return domainError(http.StatusInternalServerError, "DELETE_FAILED", "Failed to delete request", nil)
	}
	if !deleted {
		return domainError(http.StatusNotFound, "REQUEST_NOT_FOUND", "Request not found", nil)
	}
	if s.search != nil {
		s.search.DeleteRequest(id)
	}
	return nil
}

func (s *Service) SearchRequests(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.RequestRecord{}, Query: q.Text}
	}
	return s.search.Search(q)
}

type CreatePublishResult struct {
	RequestID   int64 `json:"request_id"`
	TgMessageID int   `json:"tg_message_id"`
	ChannelID   int64 `json:"channel_id"`
}

// CreateAndPublish creates a request and immediately posts it to the channel
// routed by its specialization, then records the post's identifiers.
func (s *Service) CreateAndPublish(ctx context.Context, in CreateRequestInput) (CreatePublishResult, error) {
	spec, ok := store.ParseSpecialization(in.Specialization)
	if !ok {
		return CreatePublishResult{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
			"specialization must be one of ACCOUNTING, LAW, EGOV", nil)
	}

	created, err := s.store.InsertRequest(ctx, store.NewRequest{
		Phone:          in.Phone,
		Name:           in.Name,
		City:           in.City,
		Description:    in.Description,
		Specialization: spec,
	})
	if err != nil {
		log.Printf("create-and-publish: insert: %v", err)
		return CreatePublishResult{}, domainError(http.StatusInternalServerError, "CREATE_PUBLISH_FAILED", "Failed to create & publish", nil)
	}

	post := telegram.ComposeRequestPost(created, false, "")
	channelID := s.router.ChannelFor(created.Specialization)

	messageID, err := s.gateway.Send(ctx, channelID, post.Text, post.ClaimPayload)
	if err != nil {
		log.Printf("create-and-publish: send for request %d: %v", created.ID, err)
		return CreatePublishResult{}, domainError(http.StatusInternalServerError, "CREATE_PUBLISH_FAILED", "Failed to create & publish", nil)
	}

	if err := s.store.SaveChannelMessage(ctx, created.ID, messageID, channelID, "request"); err != nil {
		log.Printf("create-and-publish: save channel message for request %d: %v", created.ID, err)
		return CreatePublishResult{}, domainError(http.StatusInternalServerError, "CREATE_PUBLISH_FAILED", "Failed to create & publish", nil)
	}

	s.indexRequest(created)
	return CreatePublishResult{
		RequestID:   created.ID,
		TgMessageID: messageID,
		ChannelID:   channelID,
	}, nil
}

type PublishUpdateResult struct {
	Moved   bool
	Edited  bool
	Updated *store.Request
}

// PublishUpdate is the republish orchestrator: it applies an edit to a
// published request and converges the channel post with the new row. The
// post stays in place when the specialization (and therefore the channel)
// is unchanged; a specialization change relocates it.
//
// Both guards read pre-edit state only, so a rejected edit has performed no
// writes. After the row update commits there is no rollback: a gateway
// failure past that point surfaces UPDATE_PUBLISH_FAILED while the row
// already holds the edit.
func (s *Service) PublishUpdate(ctx context.Context, id int64, in RequestEditsInput) (PublishUpdateResult, error) {
	edits, err := in.toEdits()
	if err != nil {
		return PublishUpdateResult{}, err
	}

	old, err := s.store.GetRequest(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return PublishUpdateResult{}, domainError(http.StatusNotFound, "REQUEST_NOT_FOUND", "Request not found", nil)
	}
	if err != nil {
		return PublishUpdateResult{}, err
	}

	if old.Status == store.StatusDone {
		return PublishUpdateResult{}, domainError(http.StatusBadRequest, "EDIT_FORBIDDEN",
			"Request is done and can no longer be edited", nil)
	}
	if old.ClaimedByID != nil && edits.Specialization != nil && *edits.Specialization != old.Specialization {
		return PublishUpdateResult{}, domainError(http.StatusBadRequest, "SPECIALIZATION_LOCKED",
			"Specialization cannot be changed while the request is claimed", nil)
	}

	updated, err := s.store.UpdateRequest(ctx, id, edits)
	if err != nil {
		log.Printf("publish-update: update request %d: %v", id, err)
		return PublishUpdateResult{}, domainError(http.StatusInternalServerError, "UPDATE_PUBLISH_FAILED", "Failed to update & publish", nil)
	}

	claimed := old.ClaimedByID != nil
	claimedByUsername := ""
	if old.ClaimedByUsername != nil {
		claimedByUsername = *old.ClaimedByUsername
	}
	post := telegram.ComposeRequestPost(updated, claimed, claimedByUsername)
	channelID := s.router.ChannelFor(updated.Specialization)

	if updated.Specialization != old.Specialization {
		// Relocation. The old post is removed best-effort: a delete failure
		// leaves a stale message behind but never blocks the move.
		if old.HasChannelMessage() {
			if err := s.gateway.Delete(ctx, *old.TgChatID, *old.TgMessageID); err != nil {
				log.Printf("publish-update: delete old post for request %d: %v", id, err)
			}
		}

		messageID, err := s.gateway.Send(ctx, channelID, post.Text, post.ClaimPayload)
		if err != nil {
			log.Printf("publish-update: send for request %d: %v", id, err)
			return PublishUpdateResult{}, domainError(http.StatusInternalServerError, "UPDATE_PUBLISH_FAILED", "Failed to update & publish", nil)
		}
		if err := s.store.SaveChannelMessage(ctx, id, messageID, channelID, "request"); err != nil {
			log.Printf("publish-update: save channel message for request %d: %v", id, err)
			return PublishUpdateResult{}, domainError(http.StatusInternalServerError, "UPDATE_PUBLISH_FAILED", "Failed to update & publish", nil)
		}
		updated.TgChatID = &channelID
		updated.TgMessageID = &messageID

		if claimed {
			s.notifyClaimant(ctx, old, updated, true)
		}
		s.indexRequest(updated)
		return PublishUpdateResult{Moved: true}, nil
	}

	// Same channel: edit the existing post in place so the claim button keeps
	// its message identity. Stored identifiers are unchanged.
	if old.HasChannelMessage() {
		if err := s.gateway.Edit(ctx, *old.TgChatID, *old.TgMessageID, post.Text, post.ClaimPayload); err != nil {
			log.Printf("publish-update: edit post for request %d: %v", id, err)
			return PublishUpdateResult{}, domainError(http.StatusInternalServerError, "UPDATE_PUBLISH_FAILED", "Failed to update & publish", nil)
		}
	}

	if claimed {
		s.notifyClaimant(ctx, old, updated, false)
	}
	s.indexRequest(updated)
	return PublishUpdateResult{Edited: true, Updated: &updated}, nil
}

// notifyClaimant DMs the specialist who claimed the request. Best-effort:
// the row and the channel post are already consistent by the time this runs.
func (s *Service) notifyClaimant(ctx context.Context, old, updated store.Request, moved bool) {
	specialist, err := s.store.GetSpecialist(ctx, *old.ClaimedByID)
	if err != nil {
		log.Printf("publish-update: load claimant %d for request %d: %v", *old.ClaimedByID, updated.ID, err)
		return
	}
	if specialist.TgID == nil {
		return
	}
	text := telegram.ComposeClaimedUpdateDM(updated, moved, s.router)
	if err := s.notifier.Notify(ctx, *specialist.TgID, text); err != nil {
		log.Printf("publish-update: notify claimant %d for request %d: %v", *old.ClaimedByID, updated.ID, err)
	}
}

func (s *Service) indexRequest(request store.Request) {
	if s.search == nil {
		return
	}
	s.search.IndexRequest(search.RequestRecord{
		ID:             request.ID,
		Name:           request.Name,
		City:           request.City,
		Description:    request.Description,
		Phone:          request.Phone,
		Specialization: string(request.Specialization),
		Status:         request.Status,
	})
}

// ── Specialists ──

type SpecialistInput struct {
	TgID            *int64   `json:"tg_id"`
	Username        *string  `json:"username"`
	Name            string   `json:"name"`
	Phone           *string  `json:"phone"`
	IsApproved      *bool    `json:"is_approved"`
	Specializations []string `json:"specializations"`
}

func (in SpecialistInput) toNewSpecialist() (store.NewSpecialist, error) {
	specs := make([]store.Specialization, 0, len(in.Specializations))
	for _, raw := range in.Specializations {
		spec, ok := store.ParseSpecialization(raw)
		if !ok {
			return store.NewSpecialist{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
				"specializations must contain only ACCOUNTING, LAW, EGOV", nil)
		}
		specs = append(specs, spec)
	}
	isApproved := false
	if in.IsApproved != nil {
		isApproved = *in.IsApproved
	}
	return store.NewSpecialist{
		TgID:            in.TgID,
		Username:        in.Username,
		Name:            in.Name,
		Phone:           in.Phone,
		IsApproved:      isApproved,
		Specializations: specs,
	}, nil
}

func (s *Service) ListSpecialists(ctx context.Context) ([]store.Specialist, error) {
	specialists, err := s.store.ListSpecialists(ctx)
	if err != nil {
		return nil, domainError(http.StatusInternalServerError, "INTERNAL_ERROR", "Не удалось загрузить специалистов", nil)
	}
	return specialists, nil
}

func (s *Service) GetSpecialist(ctx context.Context, id int64) (store.Specialist, error) {
	specialist, err := s.store.GetSpecialist(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Specialist{}, domainError(http.StatusNotFound, "SPECIALIST_NOT_FOUND", "Специалист не найден", nil)
	}
	if err != nil {
		return store.Specialist{}, domainError(http.StatusInternalServerError, "INTERNAL_ERROR", "Ошибка получения специалиста", nil)
	}
	return specialist, nil
}

func (s *Service) CreateSpecialist(ctx context.Context, in SpecialistInput) (store.Specialist, error) {
	newSpecialist, err := in.toNewSpecialist()
	if err != nil {
		return store.Specialist{}, err
	}
	created, err := s.store.InsertSpecialist(ctx, newSpecialist)
	if err != nil {
		return store.Specialist{}, domainError(http.StatusInternalServerError, "CREATE_FAILED", "Не удалось создать специалиста", nil)
	}
	return created, nil
}

func (s *Service) UpdateSpecialist(ctx context.Context, id int64, in SpecialistInput) (store.Specialist, error) {
	newSpecialist, err := in.toNewSpecialist()
	if err != nil {
		return store.Specialist{}, err
	}
	updated, err := s.store.UpdateSpecialist(ctx, id, newSpecialist)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Specialist{}, domainError(http.StatusNotFound, "SPECIALIST_NOT_FOUND", "Специалист не найден", nil)
	}
	if err != nil {
		return store.Specialist{}, domainError(http.StatusInternalServerError, "UPDATE_FAILED", "Не удалось обновить специалиста", nil)
	}
	return updated, nil
}

func (s *Service) DeleteSpecialist(ctx context.Context, id int64) error {
	deleted, err := s.store.DeleteSpecialist(ctx, id)
	if err != nil {
		return domainError(http.StatusInternalServerError, "DELETE_FAILED", "Не удалось удалить специалиста", nil)
	}
	if !deleted {
		return domainError(http.StatusNotFound, "SPECIALIST_NOT_FOUND", "Специалист не найден", nil)
	}
	return nil
}

// ApproveSpecialist marks the specialist approved and sends the approval DM.
// Without a Telegram identity on file the notification is skipped.
func (s *Service) ApproveSpecialist(ctx context.Context, id int64) error {
	specialist, err := s.store.GetSpecialist(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domainError(http.StatusNotFound, "SPECIALIST_NOT_FOUND", "Специалист не найден", nil)
	}
	if err != nil {
		return domainError(http.StatusInternalServerError, "APPROVE_FAILED", "Не удалось утвердить специалиста", nil)
	}

	if err := s.store.ApproveSpecialist(ctx, id); err != nil {
		log.Printf("approve: specialist %d: %v", id, err)
		return domainError(http.StatusInternalServerError, "APPROVE_FAILED", "Не удалось утвердить специалиста", nil)
	}

	if specialist.TgID != nil {
		text := telegram.ComposeApprovalDM(specialist, s.router)
		if err := s.notifier.Notify(ctx, *specialist.TgID, text); err != nil {
			log.Printf("approve: notify specialist %d: %v", id, err)
			return domainError(http.StatusInternalServerError, "APPROVE_FAILED", "Не удалось утвердить специалиста", nil)
		}
	}
	return nil
}
