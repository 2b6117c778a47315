package services

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogMailer is the default Mailer: it writes the code to the structured log
// instead of sending mail. Real delivery belongs to an external collaborator.
type LogMailer struct{}

// SendOTP implements Mailer.
func (LogMailer) SendOTP(_ context.Context, email, subject, code string) error {
	log.Info().
		Str("email", email).
		Str("subject", subject).
		Str("otp", code).
		Msg("otp issued")
	return nil
}
