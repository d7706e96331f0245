package signup

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Form field names, as used by the signup form and JSON API.
const (
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldFullName     = "fullName"
	FieldOrganization = "organization"
	FieldDepartment   = "department"
)

const (
	minOrganizationLength = 3
	maxOrganizationLength = 100
)

// Struct tag keys holding each schema's rules.
const (
	serverTag = "validate"
	clientTag = "client"
)

// Input is the raw signup submission. The validate tag holds the
// authoritative server rules, the client tag the stricter form rules.
type Input struct {
	Email        string `json:"email" validate:"required,email,govemail" client:"email"`
	Password     string `json:"password" validate:"passwordlen" client:"passwordlen,hasupper,haslower,hasdigit"`
	FullName     string `json:"fullName" validate:"required" client:"required"`
	Organization string `json:"organization" validate:"required" client:"min=3,max=100"`
	Department   string `json:"department,omitempty"`

	// IP is the client address recorded in the audit log. It is set by the
	// transport, never decoded from a request body.
	IP string `json:"-"`
}

// Violation is a single failed rule.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists violations in schema field order, at most one per field.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "Invalid input"
	}
	return e.Violations[0].Message
}

// Message returns the violation message for field, or "".
func (e *ValidationError) Message(field string) string {
	for _, v := range e.Violations {
		if v.Field == field {
			return v.Message
		}
	}
	return ""
}

// Schema validates Input against one tag set and maps each failed rule to
// its user facing message.
type Schema struct {
	name     string
	validate *validator.Validate
	order    []string          // field order of reported violations
	messages map[string]string // "field.tag" -> message
}

// Name identifies the schema in logs.
func (s Schema) Name() string {
	return s.name
}

// ServerSchema is the authoritative schema applied before provisioning.
func ServerSchema(p Policy) Schema {
	return newSchema("server", serverTag, p,
		[]string{FieldEmail, FieldPassword, FieldFullName, FieldOrganization},
		map[string]string{
			FieldEmail + ".required":        "Email is required",
			FieldEmail + ".email":           "Invalid email address",
			FieldEmail + ".govemail":        "Must use a valid government email",
			FieldPassword + ".passwordlen":  fmt.Sprintf("Password must be at least %d characters", p.MinPasswordLength),
			FieldFullName + ".required":     "Full name is required",
			FieldOrganization + ".required": "Organization name is required",
		},
	)
}

// ClientSchema is the stricter schema the form applies before submitting.
// It adds password composition and organization length rules, and does not
// check the email domain.
func ClientSchema(p Policy) Schema {
	return newSchema("client", clientTag, p,
		[]string{FieldEmail, FieldPassword, FieldOrganization, FieldFullName},
		map[string]string{
			FieldEmail + ".email":          "Enter a valid email address",
			FieldPassword + ".passwordlen": fmt.Sprintf("Password must be at least %d characters", p.MinPasswordLength),
			FieldPassword + ".hasupper":    "Must include at least one uppercase letter",
			FieldPassword + ".haslower":    "Must include at least one lowercase letter",
			FieldPassword + ".hasdigit":    "Must include at least one number",
			FieldOrganization + ".min":     fmt.Sprintf("Organization name must be at least %d characters", minOrganizationLength),
			FieldOrganization + ".max":     fmt.Sprintf("Organization name must be at most %d characters", maxOrganizationLength),
			FieldFullName + ".required":    "Full name is required",
		},
	)
}

func newSchema(name, tag string, p Policy, order []string, messages map[string]string) Schema {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName(tag)

	// Report fields by their JSON names so they match the form fields.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		jsonName, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if jsonName == "-" {
			return ""
		}
		return jsonName
	})

	policy := p
	err := v.RegisterValidation("govemail", func(fl validator.FieldLevel) bool {
		_, domain, ok := strings.Cut(fl.Field().String(), "@")
		return ok && policy.AllowsDomain(domain)
	})
	if err != nil {
		panic(fmt.Sprintf("register govemail validation: %v", err))
	}

	v.RegisterAlias("passwordlen", fmt.Sprintf("min=%d", p.MinPasswordLength))
	v.RegisterAlias("hasupper", "containsany=ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	v.RegisterAlias("haslower", "containsany=abcdefghijklmnopqrstuvwxyz")
	v.RegisterAlias("hasdigit", "containsany=0123456789")

	return Schema{
		name:     name,
		validate: v,
		order:    order,
		messages: messages,
	}
}

// Normalize trims surrounding whitespace from every text field except the
// password.
func Normalize(in Input) Input {
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Organization = strings.TrimSpace(in.Organization)
	in.Department = strings.TrimSpace(in.Department)
	in.IP = strings.TrimSpace(in.IP)
	return in
}

// Validate normalizes in and checks it against schema. It returns the
// normalized input, or a *ValidationError holding at most one violation per
// field.
func Validate(schema Schema, in Input) (Input, error) {
	in = Normalize(in)

	err := schema.validate.Struct(in)
	if err == nil {
		return in, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return in, fmt.Errorf("failed to validate signup input: %w", err)
	}

	violations := make([]Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, ok := schema.messages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = MsgInvalidInput
		}
		violations = append(violations, Violation{Field: fe.Field(), Message: msg})
	}

	slices.SortStableFunc(violations, func(a, b Violation) int {
		return slices.Index(schema.order, a.Field) - slices.Index(schema.order, b.Field)
	})

	return in, &ValidationError{Violations: violations}
}
