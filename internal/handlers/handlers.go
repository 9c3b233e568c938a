package handlers

import (
	"database/sql"

	"github.com/tobi-ade/storefront-golang/internal/ai"
	"github.com/tobi-ade/storefront-golang/internal/email"
	"github.com/tobi-ade/storefront-golang/internal/paystack"
	"github.com/tobi-ade/storefront-golang/internal/push"
)

// Handlers holds every dependency the HTTP handlers and the outbox worker
// need. All collaborators are injected in main; Push, Mailer and AI may be
// nil when the corresponding provider is not configured.
type Handlers struct {
	DB       *sql.DB
	Paystack *paystack.Client
	Push     *push.Client
	Mailer   *email.Mailer
	AI       *ai.AIService
}
