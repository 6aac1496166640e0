package flows

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartsim-dev/smartsim/internal/client"
	"github.com/smartsim-dev/smartsim/internal/session"
	"github.com/smartsim-dev/smartsim/internal/smsdev"
	"github.com/smartsim-dev/smartsim/internal/storage"
	"github.com/smartsim-dev/smartsim/internal/validation"
)

// mockGateway answers /send with the codigo keyed by phone number
func mockGateway(t *testing.T) *httptest.Server {
	t.Helper()

	codes := map[string]any{
		"5511900000408": "408",
		"5511900000403": 403,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/send", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		code, ok := codes[q.Get("number")]
		if !ok {
			code = "200"
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"situacao":  "OK",
			"codigo":    code,
			"id":        "637849052",
			"descricao": "MENSAGEM NA FILA",
		})
	})
	mux.HandleFunc("/balance", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"situacao": "OK", "saldo_sms": "42", "descricao": "SALDO ATUAL"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// mockAPI serves POST /sessions and PUT /users
func mockAPI(t *testing.T, admin bool) (*httptest.Server, *[]string) {
	t.Helper()

	var authHeaders []string
	mux := http.NewServeMux()
	mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		var req client.SessionRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "password123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"token": "jwt-token",
			"user":  map[string]any{"id": "user-1", "name": "Ana", "email": req.Email, "sms_key": "KEY"},
			"admin": admin,
		})
	})
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &authHeaders
}

func newTestService(t *testing.T, admin bool) (*Service, *[]string) {
	t.Helper()

	apiSrv, authHeaders := mockAPI(t, admin)
	api := client.New(apiSrv.URL, time.Second)
	sms := smsdev.New(mockGateway(t).URL, smsdev.DefaultMessageType, time.Second)

	mgr, err := session.NewManager(context.Background(), session.NewStore(storage.NewMemory()), api, zerolog.Nop())
	require.NoError(t, err)

	return NewService(mgr, api, sms, zerolog.Nop()), authHeaders
}

func signedIn(t *testing.T, admin bool) (*Service, *[]string) {
	t.Helper()
	svc, authHeaders := newTestService(t, admin)
	require.NoError(t, svc.SignIn(context.Background(), SignInForm{Email: "ana@example.com", Password: "password123"}))
	return svc, authHeaders
}

func TestSignIn_ValidatesBeforeNetwork(t *testing.T) {
	svc, _ := newTestService(t, false)

	err := svc.SignIn(context.Background(), SignInForm{Email: "not-an-email"})
	var verrs *validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "Enter a valid e-mail", verrs.Field("email"))
	assert.Equal(t, "Password is required", verrs.Field("password"))

	assert.False(t, svc.Manager().Snapshot().Authenticated())
}

func TestSignIn_Rejected(t *testing.T) {
	svc, _ := newTestService(t, false)

	err := svc.SignIn(context.Background(), SignInForm{Email: "ana@example.com", Password: "wrong"})
	var authErr *session.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.False(t, svc.Manager().Snapshot().Authenticated())
}

func TestSignIn_AndOut(t *testing.T) {
	svc, _ := signedIn(t, true)

	user, ok := svc.Manager().CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "user-1", user.ID)
	assert.True(t, user.IsAdmin)

	require.NoError(t, svc.SignOut(context.Background()))
	assert.False(t, svc.Manager().Snapshot().Authenticated())
}

func TestSendSMS_Outcomes(t *testing.T) {
	svc, _ := signedIn(t, false)

	tests := []struct {
		phone   string
		want    Outcome
		wantErr error
	}{
		{"5511900000408", OutcomeInsufficientBalance, smsdev.ErrInsufficientBalance},
		{"5511900000403", OutcomeNotProvisioned, smsdev.ErrNotProvisioned},
		{"5511900000200", OutcomeSent, nil},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			report, err := svc.SendSMS(context.Background(), SendForm{Phone: tt.phone, Message: "hello"})
			assert.Equal(t, tt.want, report.Outcome)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "637849052", report.MessageID)
		})
	}

	t.Run("no gateway key", func(t *testing.T) {
		user, ok := svc.Manager().CurrentUser()
		require.True(t, ok)
		user.SMSKey = ""
		require.NoError(t, svc.Manager().UpdateUser(context.Background(), user))

		report, err := svc.SendSMS(context.Background(), SendForm{Phone: "5511900000200", Message: "hello"})
		assert.ErrorIs(t, err, smsdev.ErrMissingKey)
		assert.Equal(t, OutcomeNotProvisioned, report.Outcome)
	})
}

func TestSendSMS_LongMessage(t *testing.T) {
	svc, _ := signedIn(t, false)

	report, err := svc.SendSMS(context.Background(), SendForm{Phone: "5511900000200", Message: strings.Repeat("a", 400)})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, report.Outcome)
}

func TestSendSMS_SignedOut(t *testing.T) {
	svc, _ := newTestService(t, false)

	report, err := svc.SendSMS(context.Background(), SendForm{Phone: "5511900000200", Message: "hello"})
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
	assert.Equal(t, OutcomeFailed, report.Outcome)
}

func TestSendSMS_Validation(t *testing.T) {
	svc, _ := signedIn(t, false)

	_, err := svc.SendSMS(context.Background(), SendForm{Phone: "abc"})
	var verrs *validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Fields, "phone")
	assert.Contains(t, verrs.Fields, "message")
}

func TestClassifySend(t *testing.T) {
	assert.Equal(t, OutcomeSent, ClassifySend(nil))
	assert.Equal(t, OutcomeInsufficientBalance, ClassifySend(&smsdev.GatewayError{Code: "408", Err: smsdev.ErrInsufficientBalance}))
	assert.Equal(t, OutcomeNotProvisioned, ClassifySend(&smsdev.GatewayError{Code: "403", Err: smsdev.ErrNotProvisioned}))
	assert.Equal(t, OutcomeNotProvisioned, ClassifySend(smsdev.ErrMissingKey))
	assert.Equal(t, OutcomeFailed, ClassifySend(&smsdev.APIError{Op: "send SMS", StatusCode: 500}))
	assert.Equal(t, OutcomeFailed, ClassifySend(errors.New("boom")))
}

func TestFetchBalance(t *testing.T) {
	svc, _ := signedIn(t, false)

	credits, err := svc.FetchBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, credits)

	require.NoError(t, svc.SignOut(context.Background()))
	_, err = svc.FetchBalance(context.Background())
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := signedIn(t, true)
	tokenBefore := svc.Manager().Token()

	user, err := svc.UpdateProfile(context.Background(), ProfileForm{Name: " Ana Maria ", Email: "ana.maria@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", user.Name)

	current, _ := svc.Manager().CurrentUser()
	assert.Equal(t, "ana.maria@example.com", current.Email)
	assert.Equal(t, "KEY", current.SMSKey)
	assert.True(t, current.IsAdmin)
	assert.Equal(t, tokenBefore, svc.Manager().Token())
}

func TestUpdateProfile_Validation(t *testing.T) {
	svc, _ := signedIn(t, false)

	_, err := svc.UpdateProfile(context.Background(), ProfileForm{Name: "Ana", Email: "ana@example.com", AvatarURL: "not a url"})
	var verrs *validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "Avatar URL must be a URL", verrs.Field("avatar_url"))
}

func TestProvisionCustomer(t *testing.T) {
	svc, authHeaders := signedIn(t, true)

	require.NoError(t, svc.ProvisionCustomer(context.Background(), UpdateUserForm{Email: "cliente@example.com", SMSKey: "NEWKEY"}))
	assert.Equal(t, []string{"Bearer jwt-token"}, *authHeaders)
}

func TestProvisionCustomer_SignedOut(t *testing.T) {
	svc, authHeaders := newTestService(t, false)

	err := svc.ProvisionCustomer(context.Background(), UpdateUserForm{Email: "cliente@example.com", SMSKey: "NEWKEY"})
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
	assert.Empty(t, *authHeaders)
}

func TestProvisionCustomer_Validation(t *testing.T) {
	svc, authHeaders := signedIn(t, true)

	err := svc.ProvisionCustomer(context.Background(), UpdateUserForm{Email: "cliente@example.com"})
	var verrs *validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "SMS key is required", verrs.Field("sms_key"))
	assert.Empty(t, *authHeaders)
}

func TestOutcome_Strings(t *testing.T) {
	for _, o := range []Outcome{OutcomeSent, OutcomeNotProvisioned, OutcomeInsufficientBalance, OutcomeFailed} {
		assert.NotEmpty(t, o.String())
		assert.NotEmpty(t, o.Message())
	}
}
