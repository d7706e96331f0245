package web

import (
	"fmt"

	"github.com/wolfeidau/townhall/internal/signup"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

const (
	appName    = "Townhall"
	appTagline = "Municipal workflows made simple."
)

var passwordRequirements = []string{
	"At least %d characters",
	"At least 1 uppercase letter",
	"At least 1 lowercase letter",
	"At least 1 number",
}

// passwordPattern mirrors the client schema composition rules.
const passwordPattern = `(?=.*[A-Z])(?=.*[a-z])(?=.*[0-9]).*`

const stylesheet = `
body{margin:0;font-family:system-ui,-apple-system,"Segoe UI",sans-serif;background:#f9fafb;color:#111827}
.auth-wrap{min-height:100vh;display:flex;flex-direction:column;justify-content:center;padding:3rem 1rem}
.auth-head{text-align:center}
.auth-head h1{margin:0;font-size:2.25rem;color:#1d4ed8}
.auth-head p{margin:.5rem 0 0;font-size:.875rem;color:#4b5563}
.card{margin:2rem auto 0;width:100%;max-width:28rem;background:#fff;padding:2rem 2.5rem;border:1px solid #f3f4f6;border-radius:.5rem;box-shadow:0 10px 15px -3px rgba(0,0,0,.1)}
.field{margin-bottom:1.5rem}
.field label{display:block;font-size:.875rem;font-weight:500;color:#374151}
.field input{margin-top:.25rem;display:block;width:100%;box-sizing:border-box;padding:.5rem;border:1px solid #d1d5db;border-radius:.375rem}
.field input.invalid{border-color:#dc2626}
.field-error{margin:.25rem 0 0;font-size:.75rem;color:#dc2626}
.hint{color:#9ca3af}
.requirements{margin:.5rem 0 0;padding-left:1rem;font-size:.75rem;color:#6b7280}
.banner{margin-bottom:1.5rem;padding:.5rem 1rem;border-radius:.25rem;font-size:.875rem}
.banner-error{background:#fef2f2;border:1px solid #dc2626;color:#dc2626}
.banner-success{background:#f0fdf4;border:1px solid #16a34a;color:#16a34a}
button{width:100%;padding:.5rem 1rem;border:0;border-radius:.375rem;background:#1d4ed8;color:#fff;font-weight:500;cursor:pointer}
button:disabled{opacity:.6;cursor:wait}
.center{text-align:center}
`

const submitScript = `
document.getElementById("signup-form").addEventListener("submit", function () {
  var button = document.getElementById("signup-submit");
  button.disabled = true;
  button.textContent = "Signing up...";
});
`

// formState is everything the signup page renders. At most one of
// FieldErrors, ServerError and Success is set.
type formState struct {
	Values      signup.Input
	FieldErrors map[string]string
	ServerError string
	Success     string
}

func authLayout(title string, content ...Node) Node {
	return Doctype(
		HTML(
			Lang("en"),
			Head(
				Meta(Charset("utf-8")),
				Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
				TitleEl(Text(title+" | "+appName)),
				StyleEl(Raw(stylesheet)),
			),
			Body(
				Main(
					Class("auth-wrap"),
					Div(
						Class("auth-head"),
						H1(Text(appName)),
						P(Text(appTagline)),
					),
					Div(Class("card"), Group(content)),
				),
			),
		),
	)
}

func signupPage(policy signup.Policy, state formState) Node {
	var banner Node
	switch {
	case state.ServerError != "":
		banner = Div(Class("banner banner-error"), Role("alert"), Text(state.ServerError))
	case state.Success != "":
		banner = Div(Class("banner banner-success"), Role("status"), Text(state.Success))
	}

	return authLayout("Sign up",
		Form(
			ID("signup-form"),
			Method("post"),
			Action("/signup"),
			inputField(state, signup.FieldEmail, "Email address", "email", "email", state.Values.Email,
				Required(),
			),
			passwordField(policy, state),
			inputField(state, signup.FieldOrganization, "Organization Name", "text", "organization", state.Values.Organization,
				Required(),
				MinLength("3"),
				MaxLength("100"),
			),
			inputField(state, signup.FieldFullName, "Full Name", "text", "name", state.Values.FullName,
				Required(),
			),
			Div(
				Class("field"),
				Label(For(signup.FieldDepartment), Text("Department "), Span(Class("hint"), Text("(optional)"))),
				Input(
					ID(signup.FieldDepartment),
					Name(signup.FieldDepartment),
					Type("text"),
					AutoComplete("organization-unit"),
					Value(state.Values.Department),
				),
			),
			banner,
			Button(ID("signup-submit"), Type("submit"), Text("Sign Up")),
		),
		Script(Raw(submitScript)),
	)
}

func inputField(state formState, field, label, inputType, autocomplete, value string, constraints ...Node) Node {
	msg := state.FieldErrors[field]
	return Div(
		Class("field"),
		Label(For(field), Text(label)),
		Input(
			ID(field),
			Name(field),
			Type(inputType),
			AutoComplete(autocomplete),
			Value(value),
			If(msg != "", Class("invalid")),
			If(msg != "", Aria("invalid", "true")),
			Group(constraints),
		),
		If(msg != "", P(Class("field-error"), Text(msg))),
	)
}

func passwordField(policy signup.Policy, state formState) Node {
	msg := state.FieldErrors[signup.FieldPassword]

	requirements := make([]Node, 0, len(passwordRequirements))
	for i, req := range passwordRequirements {
		if i == 0 {
			req = fmt.Sprintf(req, policy.MinPasswordLength)
		}
		requirements = append(requirements, Li(Text(req)))
	}

	return Div(
		Class("field"),
		Label(For(signup.FieldPassword), Text("Password")),
		Input(
			ID(signup.FieldPassword),
			Name(signup.FieldPassword),
			Type("password"),
			AutoComplete("new-password"),
			Required(),
			MinLength(fmt.Sprint(policy.MinPasswordLength)),
			Pattern(passwordPattern),
			If(msg != "", Class("invalid")),
			If(msg != "", Aria("invalid", "true")),
		),
		Ul(Class("requirements"), Group(requirements)),
		If(msg != "", P(Class("field-error"), Text(msg))),
	)
}

func verifyEmailPage() Node {
	return authLayout("Verify email",
		Div(
			Class("center"),
			H2(Text("Check Your Email")),
			P(Text("We've sent a confirmation link to your email address. Please click the link to verify your account.")),
			P(Class("hint"), Text("Didn't receive it? Check your spam folder or contact support.")),
		),
	)
}

func errorPage(status int, msg string) Node {
	return authLayout("Error",
		Div(
			Class("center"),
			H2(Text(fmt.Sprintf("%d", status))),
			P(Text(msg)),
		),
	)
}
