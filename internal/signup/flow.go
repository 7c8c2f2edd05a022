package signup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/kombee/eshop-storefront/internal/domain"
	"github.com/kombee/eshop-storefront/internal/saleor"
)

// ErrInProgress is returned while a visitor's previous signup attempt is still
// running; the submitting gate blocks concurrent re-entry.
var ErrInProgress = errors.New("signup already in progress")

const (
	msgSignupFailed = "Signup failed. Please try again."
	msgManualLogin  = "Your account has been created. Please log in to continue."
)

// Outcome tags the terminal state of one signup attempt. Account creation and
// login are decoupled remote operations, so "account created but not logged
// in" is a first-class outcome, not a registration failure.
type Outcome string

const (
	OutcomeSuccess                   Outcome = "SUCCESS"
	OutcomeValidationFailed          Outcome = "VALIDATION_FAILED"
	OutcomeRegistrationFailed        Outcome = "REGISTRATION_FAILED"
	OutcomeAccountCreatedLoginFailed Outcome = "ACCOUNT_CREATED_LOGIN_FAILED"
)

// Input carries the raw signup form fields.
type Input struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Result is the terminal state of a signup attempt. FieldErrors is populated
// only on validation exits; otherwise FormError carries at most one message.
type Result struct {
	Outcome     Outcome
	FieldErrors map[string]string
	FormError   string
	Username    string
	RedirectTo  string
}

// Accounts is the slice of the remote commerce API the flow needs.
type Accounts interface {
	AccountRegister(ctx context.Context, email, password string) (*saleor.AccountRegisterResult, error)
	TokenCreate(ctx context.Context, email, password string) (*saleor.TokenCreateResult, error)
}

// Sessions is the slice of the session manager the flow needs.
type Sessions interface {
	Login(ctx context.Context, visitorID, token, username string) error
}

// Flow orchestrates the two-phase register-then-login protocol. All remote
// errors stop here; they are folded into the Result and never propagated.
type Flow struct {
	api      Accounts
	sessions Sessions

	mu       sync.Mutex
	inflight map[string]bool
}

func NewFlow(api Accounts, sessions Sessions) *Flow {
	return &Flow{
		api:      api,
		sessions: sessions,
		inflight: make(map[string]bool),
	}
}

// Submit runs one signup attempt for the visitor. Only ErrInProgress is ever
// returned as an error; every other failure is a Result. No partial state is
// retained across a failed attempt, so the visitor may simply resubmit.
func (f *Flow) Submit(ctx context.Context, visitorID string, in Input) (Result, error) {
	if !f.begin(visitorID) {
		return Result{}, ErrInProgress
	}
	defer f.end(visitorID)

	status := domain.SignupStatusIdle

	status = f.transition(status, domain.SignupStatusValidating)
	if fieldErrs := Validate(in); len(fieldErrs) > 0 {
		f.transition(status, domain.SignupStatusIdle)
		return Result{Outcome: OutcomeValidationFailed, FieldErrors: fieldErrs}, nil
	}

	status = f.transition(status, domain.SignupStatusRegistering)
	if formErr, ok := f.register(ctx, in); !ok {
		f.transition(status, domain.SignupStatusIdle)
		return Result{Outcome: OutcomeRegistrationFailed, FormError: formErr}, nil
	}

	// The account now exists remotely. Whatever happens next, this attempt
	// must not report a registration failure.
	status = f.transition(status, domain.SignupStatusAutoLoggingIn)
	token, ok, remoteMsg := f.autoLogin(ctx, in)
	if !ok {
		f.transition(status, domain.SignupStatusIdle)
		return Result{Outcome: OutcomeAccountCreatedLoginFailed, FormError: manualLoginMessage(remoteMsg)}, nil
	}

	username := localPart(in.Email)
	if err := f.sessions.Login(ctx, visitorID, token, username); err != nil {
		// persistence warning only; the in-memory session is already live
		log.Printf("signup: session persist warning for visitor %s: %v", visitorID, err)
	}

	f.transition(status, domain.SignupStatusSuccess)
	return Result{Outcome: OutcomeSuccess, Username: username, RedirectTo: "/products"}, nil
}

// register runs the account-creation call. Returns the form-level message and
// false when the attempt must abort.
func (f *Flow) register(ctx context.Context, in Input) (string, bool) {
	res, err := f.api.AccountRegister(ctx, in.Email, in.Password)
	if err != nil {
		return formMessage(err), false
	}
	if len(res.Errors) > 0 {
		return res.Errors[0].Message, false
	}
	if res.User == nil {
		return msgSignupFailed, false
	}
	return "", true
}

// autoLogin runs the token-creation call, only ever after the registration
// response has been fully evaluated. Returns the token, whether both token and
// identity were present, and the remote message when they were not.
func (f *Flow) autoLogin(ctx context.Context, in Input) (token string, ok bool, remoteMsg string) {
	res, err := f.api.TokenCreate(ctx, in.Email, in.Password)
	if err != nil {
		var respErr *saleor.ResponseError
		if errors.As(err, &respErr) {
			return "", false, respErr.Message
		}
		return "", false, ""
	}
	if res.Token == "" || res.User == nil || len(res.Errors) > 0 {
		msg := ""
		if len(res.Errors) > 0 {
			msg = res.Errors[0].Message
		}
		return "", false, msg
	}
	return res.Token, true, ""
}

// transition asserts the move is legal in the four-state machine and returns
// the new status. An illegal move indicates a bug in the flow itself.
func (f *Flow) transition(from, to domain.SignupStatus) domain.SignupStatus {
	if !domain.CanTransitionTo(from, to) {
		log.Printf("signup: illegal status transition %s -> %s", from, to)
	}
	return to
}

func (f *Flow) begin(visitorID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inflight[visitorID] {
		return false
	}
	f.inflight[visitorID] = true
	return true
}

func (f *Flow) end(visitorID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.inflight, visitorID)
}

// formMessage surfaces the remote-supplied message when there is one, else the
// generic failure message.
func formMessage(err error) string {
	var respErr *saleor.ResponseError
	if errors.As(err, &respErr) && respErr.Message != "" {
		return respErr.Message
	}
	return msgSignupFailed
}

// manualLoginMessage is the distinct, non-alarming partial-success message:
// the account exists, only the automatic login failed.
func manualLoginMessage(remote string) string {
	if remote == "" {
		return msgManualLogin
	}
	return fmt.Sprintf("Your account has been created, but automatic login failed: %s. Please log in manually.", remote)
}

// localPart derives the display name from the email's local part.
func localPart(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}
