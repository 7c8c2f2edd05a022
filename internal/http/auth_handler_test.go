package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kombee/eshop-storefront/internal/cart"
	"github.com/kombee/eshop-storefront/internal/domain"
	"github.com/kombee/eshop-storefront/internal/saleor"
	"github.com/kombee/eshop-storefront/internal/session"
	"github.com/kombee/eshop-storefront/internal/signup"
	"github.com/kombee/eshop-storefront/internal/store"
)

type accountsMock struct {
	registerRes *saleor.AccountRegisterResult
	registerErr error
	tokenRes    *saleor.TokenCreateResult
	tokenErr    error
}

func (m accountsMock) AccountRegister(context.Context, string, string) (*saleor.AccountRegisterResult, error) {
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	return m.registerRes, nil
}

func (m accountsMock) TokenCreate(context.Context, string, string) (*saleor.TokenCreateResult, error) {
	if m.tokenErr != nil {
		return nil, m.tokenErr
	}
	return m.tokenRes, nil
}

type authFixture struct {
	handler  *AuthHandler
	sessions *session.Manager
	carts    *cart.Manager
}

func newAuthFixture(api accountsMock) authFixture {
	st := store.NewMemoryStore()
	sessions := session.NewManager(st)
	carts := cart.NewManager(st)
	flow := signup.NewFlow(api, sessions)
	return authFixture{
		handler:  NewAuthHandler(flow, api, sessions, carts, 5*time.Second),
		sessions: sessions,
		carts:    carts,
	}
}

func cartLine(id string, qty int) domain.CartLine {
	return domain.CartLine{ID: id, Title: "Product " + id, Price: 100, Quantity: qty}
}

func jsonRequest(t *testing.T, method, target string, payload interface{}, visitorID string) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	return withVisitor(httptest.NewRequest(method, target, bytes.NewBuffer(body)), visitorID)
}

func TestSignup_Success(t *testing.T) {
	fixture := newAuthFixture(accountsMock{
		registerRes: &saleor.AccountRegisterResult{User: &saleor.User{Email: "a@b.com"}},
		tokenRes:    &saleor.TokenCreateResult{Token: "T", User: &saleor.User{Email: "a@b.com"}},
	})

	recorder := httptest.NewRecorder()
	request := jsonRequest(t, "POST", "/", signup.Input{
		Email: "a@b.com", Password: "abcd1", ConfirmPassword: "abcd1",
	}, "v1")

	fixture.handler.Signup(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, recorder.Code)
	}

	var response SignupResponse
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Outcome != signup.OutcomeSuccess {
		t.Errorf("Expected SUCCESS outcome, got %s", response.Outcome)
	}
	if response.Username != "a" || response.RedirectTo != "/products" {
		t.Errorf("Expected username 'a' and redirect to /products, got %+v", response)
	}

	s := fixture.sessions.Current(context.Background(), "v1")
	if !s.IsLoggedIn() || s.Username != "a" {
		t.Errorf("Expected logged-in session for 'a', got %+v", s)
	}
}

func TestSignup_ValidationErrors(t *testing.T) {
	fixture := newAuthFixture(accountsMock{})

	recorder := httptest.NewRecorder()
	request := jsonRequest(t, "POST", "/", signup.Input{
		Email: "a@b.com", Password: "ab", ConfirmPassword: "ab",
	}, "v1")

	fixture.handler.Signup(recorder, request)

	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status code %d, got %d", http.StatusUnprocessableEntity, recorder.Code)
	}

	var response SignupResponse
	json.NewDecoder(recorder.Body).Decode(&response)
	if response.Outcome != signup.OutcomeValidationFailed {
		t.Errorf("Expected VALIDATION_FAILED outcome, got %s", response.Outcome)
	}
	if response.FieldErrors["password"] == "" {
		t.Errorf("Expected a password field error, got %+v", response.FieldErrors)
	}
}

func TestSignup_PartialSuccessIsNotAnError(t *testing.T) {
	fixture := newAuthFixture(accountsMock{
		registerRes: &saleor.AccountRegisterResult{User: &saleor.User{Email: "a@b.com"}},
		tokenRes:    &saleor.TokenCreateResult{Errors: []saleor.APIError{{Message: "bad creds"}}},
	})

	recorder := httptest.NewRecorder()
	request := jsonRequest(t, "POST", "/", signup.Input{
		Email: "a@b.com", Password: "abcd1", ConfirmPassword: "abcd1",
	}, "v1")

	fixture.handler.Signup(recorder, request)

	// account created: 200, never a failure status
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, recorder.Code)
	}

	var response SignupResponse
	json.NewDecoder(recorder.Body).Decode(&response)
	if response.Outcome != signup.OutcomeAccountCreatedLoginFailed {
		t.Errorf("Expected ACCOUNT_CREATED_LOGIN_FAILED outcome, got %s", response.Outcome)
	}
	if response.FormError == "" {
		t.Error("Expected a manual-login form message")
	}

	if fixture.sessions.Current(context.Background(), "v1").IsLoggedIn() {
		t.Error("Expected session to stay anonymous")
	}
}

func TestSignup_RegistrationFailed(t *testing.T) {
	fixture := newAuthFixture(accountsMock{
		registerRes: &saleor.AccountRegisterResult{
			Errors: []saleor.APIError{{Field: "email", Message: "already registered"}},
		},
	})

	recorder := httptest.NewRecorder()
	request := jsonRequest(t, "POST", "/", signup.Input{
		Email: "a@b.com", Password: "abcd1", ConfirmPassword: "abcd1",
	}, "v1")

	fixture.handler.Signup(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("Expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}

	var response SignupResponse
	json.NewDecoder(recorder.Body).Decode(&response)
	if response.FormError != "already registered" {
		t.Errorf("Expected remote message, got '%s'", response.FormError)
	}
}

func TestLogin_Success(t *testing.T) {
	fixture := newAuthFixture(accountsMock{
		tokenRes: &saleor.TokenCreateResult{Token: "T", User: &saleor.User{Email: "alice@b.com"}},
	})

	recorder := httptest.NewRecorder()
	request := jsonRequest(t, "POST", "/", LoginRequestDTO{Email: "alice@b.com", Password: "abcd1"}, "v1")

	fixture.handler.Login(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, recorder.Code)
	}

	var response SessionResponse
	json.NewDecoder(recorder.Body).Decode(&response)
	if !response.IsLoggedIn || response.Username != "alice" {
		t.Errorf("Expected logged-in response for 'alice', got %+v", response)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	fixture := newAuthFixture(accountsMock{
		tokenRes: &saleor.TokenCreateResult{Errors: []saleor.APIError{{Message: "bad creds"}}},
	})

	recorder := httptest.NewRecorder()
	request := jsonRequest(t, "POST", "/", LoginRequestDTO{Email: "a@b.com", Password: "wrong"}, "v1")

	fixture.handler.Login(recorder, request)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("Expected status code %d, got %d", http.StatusUnauthorized, recorder.Code)
	}

	var response ErrorResponse
	json.NewDecoder(recorder.Body).Decode(&response)
	if response.Error != "bad creds" {
		t.Errorf("Expected remote message, got '%s'", response.Error)
	}
}

func TestLogoutKeepsCart(t *testing.T) {
	fixture := newAuthFixture(accountsMock{
		tokenRes: &saleor.TokenCreateResult{Token: "T", User: &saleor.User{Email: "a@b.com"}},
	})
	ctx := context.Background()

	fixture.carts.AddItem(ctx, "v1", cartLine("p1", 2))

	recorder := httptest.NewRecorder()
	fixture.handler.Login(recorder, jsonRequest(t, "POST", "/", LoginRequestDTO{Email: "a@b.com", Password: "abcd1"}, "v1"))

	recorder = httptest.NewRecorder()
	fixture.handler.Logout(recorder, withVisitor(httptest.NewRequest("POST", "/", nil), "v1"))
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("Expected status code %d, got %d", http.StatusNoContent, recorder.Code)
	}

	recorder = httptest.NewRecorder()
	fixture.handler.Session(recorder, withVisitor(httptest.NewRequest("GET", "/", nil), "v1"))

	var response SessionResponse
	json.NewDecoder(recorder.Body).Decode(&response)
	if response.IsLoggedIn {
		t.Error("Expected anonymous session after logout")
	}
	if response.CartCount != 2 {
		t.Errorf("Expected cart to survive logout with count 2, got %d", response.CartCount)
	}
}

func TestSession_NavbarRead(t *testing.T) {
	fixture := newAuthFixture(accountsMock{})
	ctx := context.Background()

	fixture.carts.AddItem(ctx, "v1", cartLine("p1", 2))
	fixture.carts.AddItem(ctx, "v1", cartLine("p2", 3))
	fixture.sessions.Login(ctx, "v1", "T", "alice")

	recorder := httptest.NewRecorder()
	fixture.handler.Session(recorder, withVisitor(httptest.NewRequest("GET", "/", nil), "v1"))

	var response SessionResponse
	json.NewDecoder(recorder.Body).Decode(&response)
	if !response.IsLoggedIn || response.Username != "alice" || response.CartCount != 5 {
		t.Errorf("Expected alice with badge count 5, got %+v", response)
	}
}
