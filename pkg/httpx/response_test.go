package httpx_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	zpkgerrors "github.com/rs/zerolog/pkgerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkghttpx "mediadiary-server/pkg/httpx"
	pkgrequestctx "mediadiary-server/pkg/requestctx"
)

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Name string `json:"name"`
	}
	cases := []struct {
		name, in string
		ok       bool
	}{
		{"valid", `{"name":"x"}`, true},
		{"unknown field", `{"name":"x","extra":1}`, false},
		{"trailing object", `{"name":"x"}{"name":"y"}`, false},
		{"malformed", `{"name":`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.in))
			var b body
			he := pkghttpx.DecodeJSON(httptest.NewRecorder(), r, &b)
			if tc.ok {
				require.Nil(t, he)
				assert.Equal(t, "x", b.Name)
				return
			}
			require.NotNil(t, he)
			assert.Equal(t, http.StatusBadRequest, he.StatusCode)
		})
	}
}

func TestWriteErrorEnvelope(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(pkgrequestctx.WithCorrelationID(r.Context(), "cid-1"))
	w := httptest.NewRecorder()

	he := pkghttpx.Unavailable("store unavailable", errors.New("conn refused"))
	he.Details = map[string]any{"op": "create"}
	pkghttpx.WriteError(w, r, he)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "cid-1", w.Header().Get("X-Correlation-Id"))
	var got struct {
		Error map[string]any `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "unavailable", got.Error["code"])
	assert.Equal(t, "cid-1", got.Error["correlation_id"])
	assert.Equal(t, map[string]any{"op": "create"}, got.Error["details"])
	assert.True(t, pkghttpx.Is(he, "unavailable"))
}

func TestWriteErrorLogsStackOnServerErrors(t *testing.T) {
	prev := zerolog.ErrorStackMarshaler
	zerolog.ErrorStackMarshaler = zpkgerrors.MarshalStack
	t.Cleanup(func() { zerolog.ErrorStackMarshaler = prev })

	logged := func(he *pkghttpx.HTTPError) map[string]any {
		var buf bytes.Buffer
		l := zerolog.New(&buf)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(l.WithContext(r.Context()))
		pkghttpx.WriteError(httptest.NewRecorder(), r, he)
		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line), buf.String())
		return line
	}

	line := logged(pkghttpx.Unavailable("store unavailable", pkgerrors.New("conn refused")))
	assert.Equal(t, "error", line["level"])
	assert.NotEmpty(t, line["stack"])

	line = logged(pkghttpx.BadRequest("invalid json", pkgerrors.New("unexpected EOF")))
	assert.Equal(t, "warn", line["level"])
	assert.NotContains(t, line, "stack")
}
