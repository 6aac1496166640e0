package smsdev

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockGateway answers every /send with sendBody and every /balance with balanceBody
func mockGateway(t *testing.T, sendBody, balanceBody string) (*httptest.Server, *[]url.Values) {
	t.Helper()

	var queries []url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method: %s", r.Method)
		}
		queries = append(queries, r.URL.Query())

		switch r.URL.Path {
		case "/v1/send":
			w.Write([]byte(sendBody))
		case "/v1/balance":
			w.Write([]byte(balanceBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &queries
}

func TestSend_QueryParameters(t *testing.T) {
	srv, queries := mockGateway(t, `{"situacao":"OK","codigo":"1","id":"637849052","descricao":"MENSAGEM NA FILA"}`, "")
	c := New(srv.URL+"/v1/", 0, time.Second)
	c.SetHTTPClient(srv.Client())

	result, err := c.Send(context.Background(), "KEY", "11988887777", "olá mundo")
	require.NoError(t, err)
	assert.Equal(t, Value("1"), result.Code)
	assert.Equal(t, Value("637849052"), result.ID)

	require.Len(t, *queries, 1)
	q := (*queries)[0]
	assert.Equal(t, "KEY", q.Get("key"))
	assert.Equal(t, "9", q.Get("type"))
	assert.Equal(t, "11988887777", q.Get("number"))
	assert.Equal(t, "olá mundo", q.Get("msg"))
}

func TestSend_Codes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"queued", `{"situacao":"OK","codigo":"1"}`, nil},
		{"numeric code", `{"situacao":"OK","codigo":1}`, nil},
		{"unknown code is success", `{"codigo":"999"}`, nil},
		{"not provisioned", `{"situacao":"ERRO","codigo":"403","descricao":"CHAVE INVALIDA"}`, ErrNotProvisioned},
		{"insufficient balance", `{"situacao":"ERRO","codigo":"408","descricao":"SEM SALDO"}`, ErrInsufficientBalance},
		{"numeric insufficient balance", `{"codigo":408}`, ErrInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := mockGateway(t, tt.body, "")
			c := New(srv.URL+"/v1", DefaultMessageType, time.Second)

			result, err := c.Send(context.Background(), "KEY", "1", "m")
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, tt.wantErr)
			require.NotNil(t, result, "refusals still return the decoded body")

			var gwErr *GatewayError
			require.ErrorAs(t, err, &gwErr)
			assert.Equal(t, string(result.Code), gwErr.Code)
		})
	}
}

func TestSend_MissingKey(t *testing.T) {
	_, err := New("http://127.0.0.1:1", 9, time.Second).Send(context.Background(), "", "1", "m")
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestSend_HTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	_, err := New(srv.URL, 9, time.Second).Send(context.Background(), "KEY", "1", "m")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream down", apiErr.Body)
}

func TestSend_MalformedBody(t *testing.T) {
	srv, _ := mockGateway(t, `not json`, "")
	_, err := New(srv.URL+"/v1", 9, time.Second).Send(context.Background(), "KEY", "1", "m")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestBalance(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{"string balance", `{"situacao":"OK","saldo_sms":"42","descricao":"SALDO ATUAL"}`, 42, false},
		{"numeric balance", `{"saldo_sms":7}`, 7, false},
		{"missing balance", `{"situacao":"OK"}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, queries := mockGateway(t, "", tt.body)
			c := New(srv.URL+"/v1", 9, time.Second)

			b, err := c.Balance(context.Background(), "KEY")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedResponse)
				return
			}
			require.NoError(t, err)

			n, err := b.Count()
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
			assert.Equal(t, "KEY", (*queries)[0].Get("key"))
		})
	}
}

func TestValue_Unmarshal(t *testing.T) {
	var v struct {
		A Value `json:"a"`
		B Value `json:"b"`
		C Value `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":" 408 ","b":12.5,"c":null}`), &v))
	assert.Equal(t, Value("408"), v.A)
	assert.Equal(t, Value("12.5"), v.B)
	assert.Equal(t, Value(""), v.C)
}
