package predict

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threatlens/threatlens-stack/respond/internal/models"
)

func TestClient_Predict(t *testing.T) {
	tests := []struct {
		name       string
		kind       models.AlertType
		wantPath   string
		status     int
		body       string
		wantErr    bool
		wantStatus int
		check      func(t *testing.T, r *Result)
	}{
		{
			name:     "network anomaly",
			kind:     models.AlertTypeNetwork,
			wantPath: "/predict/network",
			status:   http.StatusOK,
			body:     `{"is_anomaly":true,"anomaly_score":0.92,"confidence":0.88,"threat_class":"ddos","details":"burst"}`,
			check: func(t *testing.T, r *Result) {
				assert.True(t, r.IsAnomaly)
				require.NotNil(t, r.AnomalyScore)
				assert.Equal(t, 0.92, *r.AnomalyScore)
				require.NotNil(t, r.ThreatClass)
				assert.Equal(t, "ddos", *r.ThreatClass)
				assert.Equal(t, "burst", r.Details)
			},
		},
		{
			name:     "email normal with null class",
			kind:     models.AlertTypeEmail,
			wantPath: "/predict/email",
			status:   http.StatusOK,
			body:     `{"is_anomaly":false,"anomaly_score":0.1,"confidence":0.95,"threat_class":null}`,
			check: func(t *testing.T, r *Result) {
				assert.False(t, r.IsAnomaly)
				assert.Nil(t, r.ThreatClass)
			},
		},
		{
			name:     "missing score stays nil",
			kind:     models.AlertTypeNetwork,
			wantPath: "/predict/network",
			status:   http.StatusOK,
			body:     `{"is_anomaly":true}`,
			check: func(t *testing.T, r *Result) {
				assert.Nil(t, r.AnomalyScore)
				assert.Nil(t, r.Confidence)
			},
		},
		{
			name:       "server error fails closed",
			kind:       models.AlertTypeNetwork,
			wantPath:   "/predict/network",
			status:     http.StatusInternalServerError,
			body:       `model not loaded`,
			wantErr:    true,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:     "undecodable body",
			kind:     models.AlertTypeEmail,
			wantPath: "/predict/email",
			status:   http.StatusOK,
			body:     `<html>`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, tt.wantPath, r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var features map[string]interface{}
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&features))
				assert.Equal(t, "10.0.0.1", features["source_ip"])

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL+"/", time.Second)
			res, err := c.Predict(context.Background(), tt.kind, map[string]string{"source_ip": "10.0.0.1"})

			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, res)
				if tt.wantStatus != 0 {
					var se *StatusError
					require.True(t, errors.As(err, &se))
					assert.Equal(t, tt.wantStatus, se.StatusCode)
					assert.Equal(t, tt.body, se.Body)
				}
				return
			}
			require.NoError(t, err)
			tt.check(t, res)
		})
	}
}

func TestClient_Predict_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 50*time.Millisecond)
	start := time.Now()
	_, err := c.Predict(context.Background(), models.AlertTypeEmail, map[string]int{"num_recipients": 1})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_Predict_UnknownKind(t *testing.T) {
	c := NewClient("http://unused", time.Second)
	_, err := c.Predict(context.Background(), models.AlertType("sms"), nil)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestClient_Health(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer srv.Close()

	status, err := NewClient(srv.URL, time.Second).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", status)
}

func TestClient_Health_Down(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Health(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	c := NewClient("http://ml", 0)
	assert.Equal(t, DefaultTimeout, c.http.Timeout)
}
