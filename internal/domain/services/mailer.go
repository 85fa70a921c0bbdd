package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/folivafy/folivafy/internal/domain/apierrors"
	"github.com/folivafy/folivafy/internal/domain/dto"
	"github.com/folivafy/folivafy/internal/domain/grants"
	"github.com/folivafy/folivafy/internal/domain/hooks"
	"github.com/folivafy/folivafy/internal/domain/repositories"
	"github.com/folivafy/folivafy/internal/infrastructure/database/models"
	"github.com/folivafy/folivafy/pkg/logger"
)

// MailCollectionName is the oao collection backing the outbound mail queue.
const MailCollectionName = "folivafy-mail"

// MailCollectionID is fixed so every instance shares one queue.
var MailCollectionID = uuid.MustParse("24297847-b6ba-447f-9c0d-7f1674fba924")

// MailTransport delivers a queued mail. The SMTP (or API) specifics live
// outside the core.
type MailTransport interface {
	Send(ctx context.Context, mail dto.MailMessage) error
}

// Mailer owns the mail queue collection and its dispatch cron hook.
type Mailer struct {
	store    repositories.Store
	registry *hooks.Registry
	log      *logger.Logger
}

func NewMailer(store repositories.Store, registry *hooks.Registry, log *logger.Logger) *Mailer {
	return &Mailer{store: store, registry: registry, log: log.Named("mailer")}
}

// EnsureCollection creates the mail queue collection if it does not exist.
func (m *Mailer) EnsureCollection(ctx context.Context) error {
	_, err := m.store.Collections().GetByName(ctx, MailCollectionName)
	if err == nil {
		return nil
	}
	if !apierrors.IsKind(err, apierrors.KindNotFound) {
		return fmt.Errorf("failed to check mail collection: %w", err)
	}

	m.log.Info("creating mail collection", "name", MailCollectionName)
	return m.store.Collections().Create(ctx, &models.Collection{
		ID:    MailCollectionID,
		Name:  MailCollectionName,
		Title: "Folivafy mail",
		Oao:   true,
	})
}

// RegisterCronHook attaches the dispatch hook for pending mails. A nil
// transport leaves mails queued and only logs them.
func (m *Mailer) RegisterCronHook(transport MailTransport) {
	m.registry.PutCronHook(
		"folivafy mailer",
		MailCollectionName,
		hooks.ByFieldEqualsValue("status", "pending"),
		&mailCronHook{transport: transport, log: m.log},
	)
}

type mailCronHook struct {
	transport MailTransport
	log       *logger.Logger
}

func (h *mailCronHook) OnDefaultInterval(ctx context.Context, hctx *hooks.CronContext) (*hooks.Result, error) {
	mail := dto.MailMessage{
		To:       stringField(hctx.Before.F, "to"),
		Subject:  stringField(hctx.Before.F, "subject"),
		BodyText: stringField(hctx.Before.F, "body_text"),
		BodyHTML: stringField(hctx.Before.F, "body_html"),
	}

	if h.transport == nil {
		h.log.Info("no mail transport configured, mail stays pending",
			"document", hctx.Before.ID, "to", mail.To)
		return hooks.EmptyResult(), nil
	}

	if err := h.transport.Send(ctx, mail); err != nil {
		return nil, fmt.Errorf("failed to send mail %s: %w", hctx.Before.ID, err)
	}

	after := hctx.After
	after.F["status"] = "sent"
	after.F["sent_at"] = time.Now().UTC().Format(time.RFC3339)
	return &hooks.Result{
		Document: hooks.StoreDocument(after),
		Grants:   hooks.KeepGrants(),
	}, nil
}

// enqueueMails stores hook-emitted mails as pending queue documents within
// the caller's transaction.
func enqueueMails(ctx context.Context, tx repositories.Store, owner uuid.UUID, mails []dto.MailMessage) error {
	for _, mail := range mails {
		f := models.JSONB{
			"title":     mail.Subject,
			"status":    "pending",
			"created":   time.Now().UTC().Format(time.RFC3339),
			"to":        mail.To,
			"subject":   mail.Subject,
			"body_text": mail.BodyText,
		}
		if mail.BodyHTML != "" {
			f["body_html"] = mail.BodyHTML
		}
		document := &models.Document{
			ID:           uuid.New(),
			CollectionID: MailCollectionID,
			Owner:        owner,
			F:            f,
		}
		if err := tx.Documents().Insert(ctx, document); err != nil {
			return fmt.Errorf("failed to enqueue mail: %w", err)
		}
		defaults := grants.DefaultDocumentGrants(true, MailCollectionID, owner)
		if err := tx.Grants().Replace(ctx, document.ID, defaults); err != nil {
			return fmt.Errorf("failed to store mail grants: %w", err)
		}
	}
	return nil
}

func stringField(f map[string]interface{}, key string) string {
	if v, ok := f[key].(string); ok {
		return v
	}
	return ""
}
