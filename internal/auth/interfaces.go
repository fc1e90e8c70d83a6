package auth

import (
	"context"

	"github.com/redmonkez12/account-service/internal/user"
)

// UserStore defines the credential-store operations the session manager needs.
// Implemented by the user repository.
type UserStore interface {
	Insert(ctx context.Context, u *user.User) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	FindByID(ctx context.Context, id int64) (*user.User, error)
	Update(ctx context.Context, u *user.User) error
	Delete(ctx context.Context, id int64) error
}

// Template identifies a transactional email template.
type Template string

const (
	TemplateVerifyAfterSignup Template = "VERIFY_AFTER_SIGNUP"
	TemplateVerifyAfterLogin  Template = "VERIFY_AFTER_LOGIN"
	TemplateVerifyAfterChange Template = "VERIFY_AFTER_CHANGE"
	TemplateResetPassword     Template = "RESET_PASSWORD"
)

// MailParams are the dynamic parameters every template receives.
type MailParams struct {
	Name  string
	Token string
}

// Mailer defines the interface for the outbound notification gateway.
// Failures propagate; the session manager never swallows a send error,
// since the emailed token is the user's only path forward.
type Mailer interface {
	Send(ctx context.Context, address string, template Template, params MailParams) error
}
