package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/freshflower-auth/config"
	"github.com/oksasatya/freshflower-auth/internal/domain/entity"
	repo "github.com/oksasatya/freshflower-auth/internal/domain/repository"
	"github.com/oksasatya/freshflower-auth/pkg/mailer"
	tpl "github.com/oksasatya/freshflower-auth/pkg/mailer/templates"
	"github.com/oksasatya/freshflower-auth/pkg/validation"
)

// PasswordHasher abstracts the password hashing algorithm.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) bool
}

// AuditRecorder stores auth events somewhere searchable.
type AuditRecorder interface {
	Record(ctx context.Context, ev entity.AuthEvent) error
}

// EmailQueue accepts email jobs for asynchronous delivery.
type EmailQueue interface {
	PublishJSON(ctx context.Context, body any) error
}

type Service struct {
	Repo   repo.UserRepository
	Hasher PasswordHasher
	Logger *logrus.Logger
	Cfg    *config.Config

	// Optional side channels; nil disables them.
	Audit AuditRecorder
	Mail  EmailQueue

	// AuditTimeout bounds each background audit write.
	AuditTimeout time.Duration

	validate *validator.Validate
	audits   sync.WaitGroup
}

const defaultAuditTimeout = 2 * time.Second

func NewService(repo repo.UserRepository, hasher PasswordHasher, logger *logrus.Logger, cfg *config.Config) *Service {
	return &Service{
		Repo:         repo,
		Hasher:       hasher,
		Logger:       logger,
		Cfg:          cfg,
		AuditTimeout: defaultAuditTimeout,
		validate:     validation.New(),
	}
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Email    string `json:"email" validate:"notblank,loginemail"`
	Password string `json:"password" validate:"notblank,min=8,bcryptmax"`
	FullName string `json:"fullName" validate:"notblank"`
}

var validationMessages = map[string]string{
	"email.notblank":     "Email cannot be null or empty",
	"email.loginemail":   "Invalid email format",
	"password.notblank":  "Password cannot be null or empty",
	"password.min":       "Password must be at least 8 characters long",
	"password.bcryptmax": "Password must be at most 72 bytes long",
	"fullName.notblank":  "Full name cannot be null or empty",
}

func (s *Service) validateRegistration(in RegisterInput) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	fe, ok := validation.FirstFieldError(err)
	if !ok {
		return err
	}
	msg, ok := validationMessages[fe.Field()+"."+fe.Tag()]
	if !ok {
		msg = fe.Field() + " is invalid"
	}
	return &ValidationError{Field: fe.Field(), Message: msg}
}

// Register validates in, stores a new user with a hashed password and returns it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	if err := s.validateRegistration(in); err != nil {
		registrations.Add("rejected", 1)
		return nil, err
	}

	exists, err := s.Repo.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		registrations.Add("duplicate", 1)
		return nil, ErrEmailExists
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &entity.User{Email: in.Email, Password: hash, FullName: in.FullName}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			registrations.Add("duplicate", 1)
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	registrations.Add("ok", 1)

	s.record(ctx, entity.AuthEvent{Action: entity.ActionRegister, UserID: u.ID, Email: u.Email})
	s.enqueue(ctx, mailer.EmailJob{
		To:       u.Email,
		Template: tpl.Welcome,
		Data:     tpl.NewWelcomeData(s.Cfg, u.FullName, u.Email, tpl.WithTime(u.CreatedAt)),
	})
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"user_id": u.ID, "request_id": MetaFrom(ctx).RequestID}).Info("user registered")
	}
	return u, nil
}

// Login returns the user whose stored hash matches password.
// It fails with ErrUserNotFound or ErrInvalidPassword.
func (s *Service) Login(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			logins.Add("user_not_found", 1)
			s.record(ctx, entity.AuthEvent{Action: entity.ActionLoginFailed, Email: email, Reason: "user_not_found"})
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !s.Hasher.Compare(u.Password, password) {
		logins.Add("invalid_password", 1)
		s.record(ctx, entity.AuthEvent{Action: entity.ActionLoginFailed, UserID: u.ID, Email: email, Reason: "invalid_password"})
		return nil, ErrInvalidPassword
	}

	logins.Add("ok", 1)
	s.record(ctx, entity.AuthEvent{Action: entity.ActionLoginSuccess, UserID: u.ID, Email: u.Email})
	if s.Cfg != nil && s.Cfg.LoginNotifyEnabled {
		meta := MetaFrom(ctx)
		s.enqueue(ctx, mailer.EmailJob{
			To:       u.Email,
			Template: tpl.LoginNotification,
			Data: tpl.NewLoginNotificationData(s.Cfg, u.FullName, u.Email,
				tpl.WithTime(time.Now()),
				tpl.WithIP(meta.IP),
				tpl.WithUserAgent(meta.UserAgent),
			),
		})
	}
	return u, nil
}

// EmailExists reports whether a user is registered under email.
func (s *Service) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.Repo.ExistsByEmail(ctx, email)
}

// FindByEmail returns the user registered under email, or nil when there is none.
func (s *Service) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	u, err := s.Repo.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Ping checks the storage backend.
func (s *Service) Ping(ctx context.Context) error {
	return s.Repo.Ping(ctx)
}

// record writes ev in the background. The write outlives the request
// context and is bounded by AuditTimeout.
func (s *Service) record(ctx context.Context, ev entity.AuthEvent) {
	if s.Audit == nil {
		return
	}
	meta := MetaFrom(ctx)
	ev.IP = meta.IP
	ev.UserAgent = meta.UserAgent
	ev.RequestID = meta.RequestID
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	timeout := s.AuditTimeout
	if timeout <= 0 {
		timeout = defaultAuditTimeout
	}

	audit, logger := s.Audit, s.Logger

	s.audits.Add(1)
	go func() {
		defer s.audits.Done()
		c, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if err := audit.Record(c, ev); err != nil && logger != nil {
			logger.WithError(err).WithField("action", ev.Action).Warn("audit record failed")
		}
	}()
}

// Flush waits for pending audit writes, or until ctx is done.
func (s *Service) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.audits.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) enqueue(ctx context.Context, job mailer.EmailJob) {
	if s.Mail == nil || (s.Cfg != nil && !s.Cfg.MailSendEnabled) {
		return
	}
	if err := s.Mail.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("template", job.Template).Warn("failed to publish email job")
	}
}
