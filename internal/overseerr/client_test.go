package overseerr

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUpstream(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", "secret", 2*time.Second)
}

func TestAbout(t *testing.T) {
	c := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, AboutPath, r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":"1.33.2","totalMediaItems":500,"totalRequests":20,"tz":"UTC"}`))
	})

	about, err := c.About(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.33.2", about.Version)
	assert.Equal(t, 500, about.TotalMediaItems)
	assert.Equal(t, 20, about.TotalRequests)
	assert.Equal(t, "UTC", about.TZ)
}

func TestAboutWithoutTZ(t *testing.T) {
	c := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"version":"1.0.0","totalMediaItems":0,"totalRequests":0}`))
	})

	about, err := c.About(context.Background())
	require.NoError(t, err)
	assert.Empty(t, about.TZ)
}

func TestStatus(t *testing.T) {
	c := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, StatusPath, r.URL.Path)
		_, _ = w.Write([]byte(`{"updateAvailable":true,"commitTag":"def456"}`))
	})

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.UpdateAvailable)
	assert.Equal(t, "def456", st.CommitTag)
}

func TestNon200(t *testing.T) {
	c := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Forbidden"}`))
	})

	_, err := c.About(context.Background())
	require.Error(t, err)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.Code)
	assert.Contains(t, se.Body, "Forbidden")
}

func TestBadJSON(t *testing.T) {
	c := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>login</html>`))
	})

	_, err := c.Status(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode json")
}

func TestContextCancel(t *testing.T) {
	c := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.About(ctx)
	require.Error(t, err)
}

func TestUnconfigured(t *testing.T) {
	_, err := New("", "", 0).About(context.Background())
	require.Error(t, err)
}
