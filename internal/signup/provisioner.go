// Package signup validates signup submissions and provisions a new tenant:
// an identity, its organization, the admin profile and an audit record.
package signup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/townhall/internal/identity"
	"github.com/wolfeidau/townhall/internal/models"
	"github.com/wolfeidau/townhall/internal/store"
	"github.com/wolfeidau/townhall/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/wolfeidau/townhall/internal/signup"

// User facing messages.
const (
	MsgSuccess            = "Signup successful. Please check your email to verify your account."
	MsgNoUser             = "Signup failed. Please check your email for confirmation."
	MsgInvalidInput       = "Invalid input"
	msgOrganizationPrefix = "Failed to create organization: "
	msgProfilePrefix      = "Failed to create user profile: "
)

// Compensation targets.
const (
	compensateIdentity     = "identity"
	compensateOrganization = "organization"
)

// Result is the outcome of CreateAccount. Exactly one of Message and Error
// is set.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func failure(msg string) Result {
	return Result{Success: false, Error: msg}
}

// Provisioner runs the account provisioning sequence. It holds no mutable
// state and is safe for concurrent use.
type Provisioner struct {
	identity identity.Provider
	stores   store.Stores
	policy   Policy
	schema   Schema
	now      func() time.Time
	newID    func() (uuid.UUID, error)
	metrics  *telemetry.Metrics
	tracer   trace.Tracer
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithPolicy replaces the default signup policy.
func WithPolicy(p Policy) Option {
	return func(pr *Provisioner) {
		pr.policy = p
	}
}

// WithClock sets the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(pr *Provisioner) {
		pr.now = now
	}
}

// WithIDGenerator sets the generator for organization and audit log IDs.
func WithIDGenerator(newID func() (uuid.UUID, error)) Option {
	return func(pr *Provisioner) {
		pr.newID = newID
	}
}

// WithMetrics records signup outcomes on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(pr *Provisioner) {
		if m != nil {
			pr.metrics = m
		}
	}
}

// WithTracerProvider sets the provider spans are started from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(pr *Provisioner) {
		pr.tracer = tp.Tracer(tracerName)
	}
}

// NewProvisioner creates a provisioner over the given collaborators.
func NewProvisioner(provider identity.Provider, stores store.Stores, opts ...Option) (*Provisioner, error) {
	if provider == nil {
		return nil, errors.New("identity provider is required")
	}
	if err := stores.Validate(); err != nil {
		return nil, err
	}

	p := &Provisioner{
		identity: provider,
		stores:   stores,
		policy:   DefaultPolicy(),
		now:      time.Now,
		newID:    uuid.NewV7,
		metrics:  telemetry.NoopMetrics(),
		tracer:   otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	p.schema = ServerSchema(p.policy)

	return p, nil
}

// Policy returns the policy the provisioner validates against.
func (p *Provisioner) Policy() Policy {
	return p.policy
}

// CreateAccount validates in and provisions the account. Each step runs only
// after the previous one succeeded. When the organization or profile write
// fails, the records already created are deleted again, newest first. The
// audit log write is best effort.
//
// Failures are reported in the Result, never as an error.
func (p *Provisioner) CreateAccount(ctx context.Context, in Input) Result {
	started := time.Now()

	ctx, span := p.tracer.Start(ctx, "signup.CreateAccount")
	defer span.End()

	outcome, res := p.createAccount(ctx, in)

	span.SetAttributes(attribute.String("signup.outcome", outcome))
	if !res.Success {
		span.SetStatus(codes.Error, res.Error)
	}
	p.metrics.RecordSignup(ctx, outcome, float64(time.Since(started).Microseconds())/1000)

	return res
}

func (p *Provisioner) createAccount(ctx context.Context, in Input) (string, Result) {
	logger := zerolog.Ctx(ctx)

	in, err := Validate(p.schema, in)
	if err != nil {
		logger.Debug().Err(err).Str("schema", p.schema.Name()).Msg("Signup rejected by validation")
		return telemetry.OutcomeValidation, failure(err.Error())
	}

	var department *string
	if in.Department != "" {
		department = &in.Department
	}

	user, err := p.signUp(ctx, in, department)
	if err != nil {
		logger.Info().Err(err).Msg("Identity provider rejected signup")
		return telemetry.OutcomeIdentity, failure(err.Error())
	}
	if user == nil {
		logger.Warn().Msg("Identity provider returned no user")
		return telemetry.OutcomeIdentity, failure(MsgNoUser)
	}

	logger = ptr(logger.With().Str("user_id", user.ID.String()).Logger())
	ctx = logger.WithContext(ctx)

	org, err := p.createOrganization(ctx, in.Organization)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create organization, removing identity")
		p.compensate(ctx, compensateIdentity, func(ctx context.Context) error {
			return p.identity.DeleteUser(ctx, user.ID)
		})
		return telemetry.OutcomeOrganization, failure(msgOrganizationPrefix + err.Error())
	}

	if err := p.createProfile(ctx, user, in, department, org.ID); err != nil {
		logger.Error().Err(err).Str("org_id", org.ID.String()).Msg("Failed to create profile, removing organization and identity")
		p.compensate(ctx, compensateOrganization, func(ctx context.Context) error {
			return p.stores.Organizations.Delete(ctx, org.ID)
		})
		p.compensate(ctx, compensateIdentity, func(ctx context.Context) error {
			return p.identity.DeleteUser(ctx, user.ID)
		})
		return telemetry.OutcomeProfile, failure(msgProfilePrefix + err.Error())
	}

	if err := p.appendAudit(ctx, user.ID, in); err != nil {
		logger.Warn().Err(err).Msg("Failed to write signup audit log")
		p.metrics.RecordAuditFailure(ctx)
	}

	logger.Info().
		Str("org_id", org.ID.String()).
		Str("slug", org.Slug).
		Msg("Account provisioned")

	return telemetry.OutcomeSuccess, Result{Success: true, Message: MsgSuccess}
}

func (p *Provisioner) signUp(ctx context.Context, in Input, department *string) (*models.User, error) {
	ctx, span := p.tracer.Start(ctx, "signup.identity.SignUp")
	defer span.End()

	user, err := p.identity.SignUp(ctx, identity.SignUpRequest{
		Email:    in.Email,
		Password: in.Password,
		Metadata: models.UserMetadata{
			FullName:     in.FullName,
			Organization: in.Organization,
			Department:   department,
		},
	})
	return user, recordErr(span, err)
}

func (p *Provisioner) createOrganization(ctx context.Context, name string) (*models.Organization, error) {
	ctx, span := p.tracer.Start(ctx, "signup.organizations.Create")
	defer span.End()

	id, err := p.newID()
	if err != nil {
		return nil, recordErr(span, fmt.Errorf("failed to generate organization ID: %w", err))
	}

	now := p.now().UTC()
	org := &models.Organization{
		ID:        id,
		Name:      name,
		Slug:      Slugify(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	span.SetAttributes(attribute.String("org.slug", org.Slug))

	if err := p.stores.Organizations.Create(ctx, org); err != nil {
		return nil, recordErr(span, err)
	}
	return org, nil
}

func (p *Provisioner) createProfile(ctx context.Context, user *models.User, in Input, department *string, orgID uuid.UUID) error {
	ctx, span := p.tracer.Start(ctx, "signup.profiles.Create")
	defer span.End()

	now := p.now().UTC()
	return recordErr(span, p.stores.Profiles.Create(ctx, &models.Profile{
		ID:             user.ID,
		Email:          in.Email,
		FullName:       in.FullName,
		Department:     department,
		OrganizationID: orgID,
		Role:           models.RoleAdmin,
		CreatedAt:      now,
		UpdatedAt:      now,
	}))
}

func (p *Provisioner) appendAudit(ctx context.Context, userID uuid.UUID, in Input) error {
	ctx, span := p.tracer.Start(ctx, "signup.auditLogs.Append")
	defer span.End()

	id, err := p.newID()
	if err != nil {
		return recordErr(span, fmt.Errorf("failed to generate audit log ID: %w", err))
	}

	var ip *string
	if in.IP != "" {
		ip = &in.IP
	}

	return recordErr(span, p.stores.AuditLogs.Append(ctx, &models.AuditLogEntry{
		ID:          id,
		UserID:      userID,
		Action:      models.AuditActionSignup,
		Table:       models.AuditTableAuth,
		RecordID:    userID,
		Description: "User signed up with email " + in.Email,
		IPAddress:   ip,
		CreatedAt:   p.now().UTC(),
	}))
}

// compensate runs an undo step detached from the caller's cancellation so a
// dropped request still unwinds. Failures are logged and counted only.
func (p *Provisioner) compensate(ctx context.Context, target string, undo func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)

	ctx, span := p.tracer.Start(ctx, "signup.compensate."+target)
	defer span.End()

	err := recordErr(span, undo(ctx))
	p.metrics.RecordCompensation(ctx, target, err)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("target", target).Msg("Compensation failed, manual cleanup required")
	}
}

func recordErr(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func ptr[T any](v T) *T {
	return &v
}
