// SPDX-License-Identifier: AGPL-3.0-or-later

// Package httpapi exposes grbl.Controller's public operations (§6) plus
// telemetry read endpoints as a JSON-over-HTTP surface, for the GUI/CLI
// collaborators spec.md §1 places out of scope.
package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/eric02138/grblhost/grbl"
	"github.com/eric02138/grblhost/telemetry"
)

// Server wires a grbl.Controller and a telemetry.Recorder to an
// http.Handler. Unlike a package-level http.HandleFunc registration, each
// Server owns its own mux so multiple controllers (e.g. under test) don't
// collide on http.DefaultServeMux.
type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	controller *grbl.Controller
	recorder   *telemetry.Recorder
}

// New builds a Server and registers every route.
func New(controller *grbl.Controller, recorder *telemetry.Recorder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{mux: http.NewServeMux(), logger: logger, controller: controller, recorder: recorder}
	s.registerRoutes()
	return s
}

// ServeHTTP implements http.Handler, so a Server can be passed straight
// to http.ListenAndServe or wrapped by a collaborator's own middleware.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// registerJSONHandler registers a POST JSON endpoint at path: decode into
// ReqT, validate, execute, encode RespT. A non-nil error from exec is an
// internal server error — by the time a request reaches exec it has
// already passed validate, so an exec error reflects a server-side fault,
// not a bad request.
func registerJSONHandler[ReqT any, RespT any](mux *http.ServeMux, logger *slog.Logger, path string, validate func(*ReqT) error, exec func(*ReqT) (*RespT, error)) {
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req ReqT
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "invalid JSON: %v", err)
			return
		}

		if err := validate(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "invalid request: %v", err)
			return
		}

		slowTimer := time.AfterFunc(1*time.Second, func() {
			logger.Warn("API exec taking more than 1 second", "path", path)
		})
		resp, err := exec(&req)
		slowTimer.Stop()
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	})
}

func (s *Server) registerRoutes() {
	registerJSONHandler(s.mux, s.logger, "/connect", validateConnect, s.handleConnect)
	registerJSONHandler(s.mux, s.logger, "/disconnect", validateNoop[DisconnectRequest], s.handleDisconnect)
	registerJSONHandler(s.mux, s.logger, "/load-program", validateLoadProgram, s.handleLoadProgram)
	registerJSONHandler(s.mux, s.logger, "/start-stream", validateNoop[StartStreamRequest], s.handleStartStream)
	registerJSONHandler(s.mux, s.logger, "/pause-stream", validateNoop[PauseStreamRequest], s.handlePauseStream)
	registerJSONHandler(s.mux, s.logger, "/resume-stream", validateNoop[ResumeStreamRequest], s.handleResumeStream)
	registerJSONHandler(s.mux, s.logger, "/abort-stream", validateNoop[AbortStreamRequest], s.handleAbortStream)
	registerJSONHandler(s.mux, s.logger, "/soft-reset", validateNoop[SoftResetRequest], s.handleSoftReset)
	registerJSONHandler(s.mux, s.logger, "/feed-hold", validateNoop[FeedHoldRequest], s.handleFeedHold)
	registerJSONHandler(s.mux, s.logger, "/cycle-resume", validateNoop[CycleResumeRequest], s.handleCycleResume)
	registerJSONHandler(s.mux, s.logger, "/kill-alarm", validateNoop[KillAlarmRequest], s.handleKillAlarm)
	registerJSONHandler(s.mux, s.logger, "/homing", validateNoop[HomingRequest], s.handleHoming)
	registerJSONHandler(s.mux, s.logger, "/jog", validateJog, s.handleJog)
	registerJSONHandler(s.mux, s.logger, "/jog-cancel", validateNoop[JogCancelRequest], s.handleJogCancel)
	registerJSONHandler(s.mux, s.logger, "/set-zero", validateSetZero, s.handleSetZero)
	registerJSONHandler(s.mux, s.logger, "/send-command", validateSendCommand, s.handleSendCommand)
	registerJSONHandler(s.mux, s.logger, "/set-threading-mode", validateSetThreadingMode, s.handleSetThreadingMode)
	registerJSONHandler(s.mux, s.logger, "/request-settings", validateNoop[RequestSettingsRequest], s.handleRequestSettings)
	registerJSONHandler(s.mux, s.logger, "/request-parser-state", validateNoop[RequestParserStateRequest], s.handleRequestParserState)
	registerJSONHandler(s.mux, s.logger, "/request-build-info", validateNoop[RequestBuildInfoRequest], s.handleRequestBuildInfo)
	registerJSONHandler(s.mux, s.logger, "/status", validateNoop[GetStatusRequest], s.handleGetStatus)
	registerJSONHandler(s.mux, s.logger, "/job-history", validateNoop[JobHistoryRequest], s.handleJobHistory)
	registerJSONHandler(s.mux, s.logger, "/query-traffic", validateQueryTraffic, s.handleQueryTraffic)
	registerJSONHandler(s.mux, s.logger, "/query-series", validateQuerySeries, s.handleQuerySeries)
}

func validateNoop[T any](*T) error { return nil }
