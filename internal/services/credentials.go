package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nemoguigrat/uralintern/internal/models"
)

const credentialsSubject = "Uralintern"

// Mail is one outgoing plain-text message.
type Mail struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers a batch of messages.
type Mailer interface {
	Send(ctx context.Context, mails []Mail) error
}

type CredentialsResult struct {
	Sent    int    `json:"sent"`
	Skipped []uint `json:"skipped"`
}

// SendCredentials mails each selected user its login email and password.
// Unknown users and users without a stored password are skipped.
func (s *UserService) SendCredentials(ctx context.Context, userIDs []uint) (*CredentialsResult, error) {
	if len(userIDs) == 0 {
		return nil, invalid("users", "at least one user is required")
	}
	if s.mailer == nil {
		return nil, fmt.Errorf("%w: mail delivery is not configured", ErrUnavailable)
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", userIDs).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	result := &CredentialsResult{Skipped: []uint{}}
	mails := make([]Mail, 0, len(users))
	seen := make(map[uint]bool, len(userIDs))
	for _, id := range userIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		u, ok := byID[id]
		if !ok || u.UnhashedPassword == "" {
			result.Skipped = append(result.Skipped, id)
			continue
		}
		mails = append(mails, credentialsMail(u))
	}
	if len(mails) == 0 {
		return result, nil
	}

	if err := s.mailer.Send(ctx, mails); err != nil {
		return nil, fmt.Errorf("send credentials: %w", err)
	}
	result.Sent = len(mails)
	slog.Info("credentials mailed", "sent", result.Sent, "skipped", len(result.Skipped))
	return result, nil
}

func credentialsMail(u *models.User) Mail {
	return Mail{
		To:      u.Email,
		Subject: credentialsSubject,
		Body: fmt.Sprintf("Привет! Ты участвуешь в стажировке, твои данные для входа:\nПочта - %s\nПароль - %s",
			u.Email, u.UnhashedPassword),
	}
}
