package handler_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/IANDYI/maternity-service/internal/adapters/handler"
	"github.com/IANDYI/maternity-service/internal/adapters/middleware"
	"github.com/IANDYI/maternity-service/internal/adapters/repository"
	"github.com/IANDYI/maternity-service/internal/adapters/websocket"
	"github.com/IANDYI/maternity-service/internal/core/domain"
	"github.com/golang-jwt/jwt/v5"
	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type alertFixture struct {
	hub        *websocket.Hub
	server     *httptest.Server
	privateKey *rsa.PrivateKey
}

func newAlertFixture(t *testing.T) *alertFixture {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	auth := middleware.NewAuthMiddleware(&privateKey.PublicKey, zerolog.Nop())
	t.Cleanup(auth.Stop)

	hub := websocket.NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	wsHandler := handler.NewWebSocketHandler(hub, auth, zerolog.Nop())
	server := httptest.NewServer(http.HandlerFunc(wsHandler.HandleWebSocket))
	t.Cleanup(server.Close)

	return &alertFixture{hub: hub, server: server, privateKey: privateKey}
}

func (f *alertFixture) token(t *testing.T, userID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
		"jti":  userID + "-jti",
	})
	signed, err := token.SignedString(f.privateKey)
	require.NoError(t, err)
	return signed
}

func (f *alertFixture) dial(t *testing.T, token string) (*gws.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	if token != "" {
		url += "?token=" + token
	}
	conn, resp, err := gws.DefaultDialer.Dial(url, nil)
	if conn != nil {
		t.Cleanup(func() { conn.Close() })
	}
	return conn, resp, err
}

func readAlert(t *testing.T, conn *gws.Conn) handler.AlertMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, body, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg handler.AlertMessage
	require.NoError(t, json.Unmarshal(body, &msg))
	return msg
}

func TestWebSocketHandler_RejectsMissingOrInvalidToken(t *testing.T) {
	f := newAlertFixture(t)

	_, resp, err := f.dial(t, "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = f.dial(t, "not-a-jwt")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLaborAlertHandler_FansOutToWorkersAndPatient(t *testing.T) {
	f := newAlertFixture(t)

	worker, _, err := f.dial(t, f.token(t, "worker-1", middleware.RoleHealthWorker))
	require.NoError(t, err)
	patient, _, err := f.dial(t, f.token(t, "patient-1", middleware.RolePatient))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return f.hub.ConnectedHealthWorkers() == 1 }, 2*time.Second, 10*time.Millisecond)

	alert := domain.LaborAlert{
		PatientID:        "patient-1",
		Contraction:      domain.ContractionRecord{ID: "c2", DurationSec: 50, FrequencyMin: 4},
		ContractionCount: 2,
		GestationalWeek:  38,
		RaisedAt:         time.Date(2024, 9, 23, 9, 4, 50, 0, time.UTC),
		AlertType:        "imminent_labor",
		Severity:         domain.LaborAlertSeverity,
	}
	body, err := json.Marshal(alert)
	require.NoError(t, err)

	// the patient may register after the worker; wait until both are reachable
	handle := handler.NewLaborAlertHandler(f.hub, zerolog.Nop())
	require.Eventually(t, func() bool {
		return f.hub.SendToUser("patient-1", []byte(`{"type":"ping"}`)) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "ping", readAlert(t, patient).Type)

	assert.Equal(t, repository.Ack, handle(context.Background(), body))

	forWorker := readAlert(t, worker)
	assert.Equal(t, "imminent_labor", forWorker.Type)
	assert.Equal(t, "patient-1", forWorker.Alert.PatientID)
	assert.Equal(t, 4, forWorker.Alert.Contraction.FrequencyMin)

	forPatient := readAlert(t, patient)
	assert.Equal(t, alert.Contraction.ID, forPatient.Alert.Contraction.ID)
}

func TestLaborAlertHandler_Outcomes(t *testing.T) {
	hub := websocket.NewHub(zerolog.Nop())
	handle := handler.NewLaborAlertHandler(hub, zerolog.Nop())

	assert.Equal(t, repository.Reject, handle(context.Background(), []byte(`{"patient_id":`)))
	assert.Equal(t, repository.Reject, handle(context.Background(), []byte(`{"alert_type":"imminent_labor"}`)))

	// no connected recipients is still a delivered alert
	assert.Equal(t, repository.Ack, handle(context.Background(), []byte(`{"patient_id":"patient-1","alert_type":"imminent_labor"}`)))
}
