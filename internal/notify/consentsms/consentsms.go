// Package consentsms texts an entity's owner when someone asks for its data.
package consentsms

import (
	"context"
	"fmt"
	"log/slog"

	authmodels "trustid/internal/auth/models"
	consentmodels "trustid/internal/consent/models"
	entitymodels "trustid/internal/entity/models"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/privacy"
)

type Users interface {
	FindByID(ctx context.Context, userID id.UserID) (*authmodels.User, error)
}

type Sender interface {
	SendMessage(ctx context.Context, phone, text string) error
}

// Notifier resolves the subject owner's phone and sends a short notice.
// Owners without a phone number are skipped.
type Notifier struct {
	users  Users
	sender Sender
	logger *slog.Logger
}

func New(users Users, sender Sender, logger *slog.Logger) *Notifier {
	return &Notifier{users: users, sender: sender, logger: logger}
}

// Message is the notice text for a new request.
func Message(subject *entitymodels.Entity, c *consentmodels.Consent) string {
	return fmt.Sprintf("TrustID: %s asked to see %d item(s) of %s for %q. Open TrustID to approve or reject.",
		c.RequesterName, len(c.RequestedAttributes), subject.Name, c.Purpose)
}

func (n *Notifier) ConsentRequested(ctx context.Context, subject *entitymodels.Entity, c *consentmodels.Consent) {
	user, err := n.users.FindByID(ctx, subject.OwnerID)
	if err != nil {
		n.logger.WarnContext(ctx, "consent notice skipped, owner lookup failed",
			"consent_id", c.ID, "error", err)
		return
	}
	if user.Phone == nil {
		return
	}
	if err := n.sender.SendMessage(ctx, *user.Phone, Message(subject, c)); err != nil {
		n.logger.WarnContext(ctx, "consent notice failed",
			"consent_id", c.ID, "phone", privacy.MaskPhone(*user.Phone), "error", err)
	}
}
