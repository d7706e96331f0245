// Package web serves the signup form, the verify email notice and the JSON
// signup API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	httpmw "github.com/wolfeidau/townhall/internal/http"
	"github.com/wolfeidau/townhall/internal/signup"
	gomponents "maragu.dev/gomponents"
)

const maxFormBytes = 64 << 10

// AccountCreator runs the account provisioning sequence.
type AccountCreator interface {
	CreateAccount(ctx context.Context, in signup.Input) signup.Result
}

// Handler serves the signup pages and API on top of an AccountCreator.
type Handler struct {
	accounts     AccountCreator
	policy       signup.Policy
	clientSchema signup.Schema
	serverSchema signup.Schema
}

// NewHandler returns a Handler that validates submissions against policy
// before passing them to accounts.
func NewHandler(accounts AccountCreator, policy signup.Policy) *Handler {
	return &Handler{
		accounts:     accounts,
		policy:       policy,
		clientSchema: signup.ClientSchema(policy),
		serverSchema: signup.ServerSchema(policy),
	}
}

func renderHTML(w http.ResponseWriter, status int, node gomponents.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = node.Render(w)
}

func renderJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Home redirects to the signup form.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/signup", http.StatusSeeOther)
}

// SignupPage renders an empty signup form.
func (h *Handler) SignupPage(w http.ResponseWriter, r *http.Request) {
	renderHTML(w, http.StatusOK, signupPage(h.policy, formState{}))
}

// SignupSubmit applies the client schema and, when it passes, provisions the
// account. The password is never echoed back into the form.
func (h *Handler) SignupSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		renderHTML(w, http.StatusBadRequest, signupPage(h.policy, formState{ServerError: signup.MsgInvalidInput}))
		return
	}

	in := signup.Input{
		Email:        r.PostForm.Get(signup.FieldEmail),
		Password:     r.PostForm.Get(signup.FieldPassword),
		FullName:     r.PostForm.Get(signup.FieldFullName),
		Organization: r.PostForm.Get(signup.FieldOrganization),
		Department:   r.PostForm.Get(signup.FieldDepartment),
		IP:           httpmw.ClientIPFromContext(r.Context()),
	}

	in, err := signup.Validate(h.clientSchema, in)
	if err != nil {
		var verr *signup.ValidationError
		if !errors.As(err, &verr) {
			renderHTML(w, http.StatusBadRequest, signupPage(h.policy, formState{ServerError: signup.MsgInvalidInput}))
			return
		}

		zerolog.Ctx(r.Context()).Debug().Err(err).Str("schema", h.clientSchema.Name()).Msg("Signup form rejected by validation")

		fieldErrors := make(map[string]string, len(verr.Violations))
		for _, v := range verr.Violations {
			fieldErrors[v.Field] = v.Message
		}

		renderHTML(w, http.StatusUnprocessableEntity, signupPage(h.policy, formState{
			Values:      redact(in),
			FieldErrors: fieldErrors,
		}))
		return
	}

	res := h.accounts.CreateAccount(r.Context(), in)
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "An error occurred. Please try again."
		}
		renderHTML(w, http.StatusBadRequest, signupPage(h.policy, formState{
			Values:      redact(in),
			ServerError: msg,
		}))
		return
	}

	msg := res.Message
	if msg == "" {
		msg = signup.MsgSuccess
	}
	renderHTML(w, http.StatusOK, signupPage(h.policy, formState{Success: msg}))
}

// VerifyEmail renders the check your inbox notice shown after signup.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	renderHTML(w, http.StatusOK, verifyEmailPage())
}

// NotFound renders the 404 page.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	renderHTML(w, http.StatusNotFound, errorPage(http.StatusNotFound, "Page not found."))
}

// APISignup accepts a JSON signup request. The client IP always comes from
// the connection, never from the body.
func (h *Handler) APISignup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	var in signup.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("Malformed signup request")
		renderJSON(w, http.StatusBadRequest, signup.Result{Success: false, Error: signup.MsgInvalidInput})
		return
	}
	in.IP = httpmw.ClientIPFromContext(r.Context())

	if _, err := signup.Validate(h.serverSchema, in); err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Str("schema", h.serverSchema.Name()).Msg("Signup request rejected by validation")
		renderJSON(w, http.StatusUnprocessableEntity, signup.Result{Success: false, Error: err.Error()})
		return
	}

	res := h.accounts.CreateAccount(r.Context(), in)
	if !res.Success {
		renderJSON(w, http.StatusBadRequest, res)
		return
	}
	renderJSON(w, http.StatusOK, res)
}

// Healthz reports liveness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func redact(in signup.Input) signup.Input {
	in.Password = ""
	in.IP = ""
	return in
}
