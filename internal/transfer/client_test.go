package transfer_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paygate/internal/transfer"
	dErrors "paygate/pkg/domain-errors"
)

func TestEnvelopeSenderPostsFormField(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		got = r.PostFormValue(transfer.PaymentDataFormKey)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := transfer.NewHTTPEnvelopeSender(5 * time.Second)
	err := sender.Send(context.Background(), srv.URL, "ZW52ZWxvcGU=")
	require.NoError(t, err)
	assert.Equal(t, "ZW52ZWxvcGU=", got)
}

func TestEnvelopeSenderServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	sender := transfer.NewHTTPEnvelopeSender(5 * time.Second)
	err := sender.Send(context.Background(), srv.URL, "ZW52ZWxvcGU=")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeTransient))
}

func TestEnvelopeSenderRejectionIsNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	sender := transfer.NewHTTPEnvelopeSender(5 * time.Second)
	err := sender.Send(context.Background(), srv.URL, "ZW52ZWxvcGU=")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeInvalidEnvelope))
}

func TestEnvelopeSenderUnreachableIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	sender := transfer.NewHTTPEnvelopeSender(time.Second)
	err := sender.Send(context.Background(), srv.URL, "ZW52ZWxvcGU=")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeTransient))
}
