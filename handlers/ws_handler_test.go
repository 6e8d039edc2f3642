package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NomadCrew/formflow-backend/config"
	"github.com/NomadCrew/formflow-backend/internal/events"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func TestParseFilters(t *testing.T) {
	assert.Nil(t, parseFilters(""))
	assert.Equal(t, []types.EventType{types.EventTypeFormCreated, types.EventTypeSubmissionCreated},
		parseFilters(" FORM_CREATED, ,SUBMISSION_CREATED"))
}

func TestEventStreamHandler(t *testing.T) {
	broker := events.NewLocalBroker(8)
	h := NewEventStreamHandler(broker, &config.ServerConfig{Environment: config.EnvDevelopment})

	r := newTestRouter(&adminActor)
	r.GET("/events/ws", h.HandleWebSocket)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events/ws?types=SUBMISSION_CREATED"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var hello ServerMessage
	require.NoError(t, wsjson.Read(ctx, conn, &hello))
	assert.Equal(t, MessageTypeConnected, hello.Type)

	formEvent, err := events.NewEvent(types.EventTypeFormCreated, types.EntityTypeForm, testFormID, adminUserID, nil)
	require.NoError(t, err)
	require.NoError(t, broker.Publish(ctx, formEvent))

	subEvent, err := events.NewEvent(types.EventTypeSubmissionCreated, types.EntityTypeSubmission, testSubID, types.AnonymousUserID,
		map[string]string{"formId": testFormID})
	require.NoError(t, err)
	require.NoError(t, broker.Publish(ctx, subEvent))

	var got struct {
		Type    string      `json:"type"`
		Payload types.Event `json:"payload"`
	}
	require.NoError(t, wsjson.Read(ctx, conn, &got))
	assert.Equal(t, MessageTypeEvent, got.Type)
	assert.Equal(t, types.EventTypeSubmissionCreated, got.Payload.Type)
	assert.Equal(t, testSubID, got.Payload.EntityID)

	require.NoError(t, wsjson.Write(ctx, conn, ClientMessage{Type: MessageTypePing}))
	var pong ServerMessage
	require.NoError(t, wsjson.Read(ctx, conn, &pong))
	assert.Equal(t, MessageTypePong, pong.Type)
}
