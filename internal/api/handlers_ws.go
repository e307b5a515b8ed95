// Litfinder - Resilient Book Recommendation Orchestration
// Copyright 2026 Kratos (kratos0002)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kratos0002/lit-finder

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kratos0002/lit-finder/internal/engine"
	"github.com/kratos0002/lit-finder/internal/logging"
	"github.com/kratos0002/lit-finder/internal/models"
	"github.com/kratos0002/lit-finder/internal/validation"
)

// wsReadTimeout bounds how long the server waits for the client's request
// message after the upgrade.
const wsReadTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// CORS enforcement happens at the router; same-origin checks here
	// would reject legitimate API clients.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RecommendWS handles GET /api/v1/recommendations/ws: the websocket
// streaming variant. The client sends one JSON request message after the
// upgrade; the server answers with the same envelopes as the SSE stream
// and closes after the terminal envelope.
func (h *Handler) RecommendWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close() //nolint:errcheck

	if err := conn.SetReadDeadline(time.Now().Add(wsReadTimeout)); err != nil {
		return
	}

	var req recommendationRequest
	if err := conn.ReadJSON(&req); err != nil {
		writeWSError(conn, "INVALID_JSON", "Request message must be valid JSON")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		writeWSError(conn, apiErr.Code, apiErr.Message)
		return
	}

	err = h.engine.Stream(r.Context(), req.engineRequest(), func(env models.StreamEnvelope) error {
		if r.Context().Err() != nil {
			return r.Context().Err()
		}
		return conn.WriteJSON(env)
	})
	if err != nil {
		if errors.Is(err, engine.ErrUnknownTier) {
			writeWSError(conn, "VALIDATION_ERROR", "Unknown tier")
			return
		}
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Websocket stream ended early")
		return
	}

	deadline := time.Now().Add(time.Second)
	conn.WriteControl(websocket.CloseMessage, //nolint:errcheck
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
}

// writeWSError sends a structured error message and closes the connection.
func writeWSError(conn *websocket.Conn, code, message string) {
	conn.WriteJSON(map[string]interface{}{ //nolint:errcheck
		"error": models.APIError{Code: code, Message: message},
	})
}
