package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"inbox-pilot/internal/apperr"
	"inbox-pilot/internal/model"
	"inbox-pilot/internal/repository"
)

type contactService struct {
	contactRepo repository.ContactRepository
}

func NewContactService(contactRepo repository.ContactRepository) ContactService {
	return &contactService{contactRepo: contactRepo}
}

func (s *contactService) ListContacts(ctx context.Context, userID string) ([]*model.Contact, error) {
	return s.contactRepo.FindByUser(ctx, userID)
}

// IsKnownContact reports whether the sender appears in the user's
// learned contacts. Unknown senders always route to review.
func (s *contactService) IsKnownContact(ctx context.Context, userID, senderAddress string) (bool, error) {
	_, err := s.contactRepo.FindByEmail(ctx, userID, extractAddress(senderAddress))
	if err != nil {
		return false, nil
	}
	return true, nil
}

// AddContact registers a sender as known by hand, so their mail becomes
// eligible for auto-send regardless of the learned contact list.
func (s *contactService) AddContact(ctx context.Context, userID, email, name string) (*model.Contact, error) {
	address := extractAddress(email)
	if _, err := mail.ParseAddress(address); err != nil {
		return nil, apperr.Validation("email", "not a valid address")
	}

	if existing, err := s.contactRepo.FindByEmail(ctx, userID, address); err == nil {
		if name != "" {
			existing.Name = name
		}
		if err := s.contactRepo.Upsert(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	contact := model.NewContact(userID, address, name, 0, time.Now())
	if err := s.contactRepo.Upsert(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

func (s *contactService) RemoveContact(ctx context.Context, userID, email string) error {
	return s.contactRepo.Delete(ctx, userID, extractAddress(email))
}

// extractAddress pulls the bare address out of a "Name <addr>" header.
func extractAddress(sender string) string {
	if addr, err := mail.ParseAddress(sender); err == nil {
		return strings.ToLower(addr.Address)
	}
	return strings.ToLower(strings.TrimSpace(sender))
}
