package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool, metricsHandler http.Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerAuthorizedGroupRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("POST /v1/groups/{groupID}/matches/{matchID}/wagers", RequireAuth(verifier, http.HandlerFunc(handler.PlaceWager)))
	mux.Handle("GET /v1/groups/{groupID}/wagers/me", RequireAuth(verifier, http.HandlerFunc(handler.ListMyWagers)))
	mux.Handle("GET /v1/groups/{groupID}/standings", RequireAuth(verifier, http.HandlerFunc(handler.ListStandings)))
	mux.Handle("GET /v1/groups/{groupID}/history", RequireAuth(verifier, http.HandlerFunc(handler.ListMyHistory)))
}

func registerAuthorizedMatchRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/matches/{matchID}", RequireAuth(verifier, http.HandlerFunc(handler.GetMatch)))
	mux.Handle("POST /v1/groups/{groupID}/matches/import", RequireAuth(verifier, http.HandlerFunc(handler.ImportMatch)))
	mux.Handle("POST /v1/groups/{groupID}/matches", RequireAuth(verifier, http.HandlerFunc(handler.CreateManualMatch)))
	mux.Handle("POST /v1/groups/{groupID}/matches/{matchID}/link", RequireAuth(verifier, http.HandlerFunc(handler.LinkMatch)))
	// Manual triggers; only the owner of a manually managed group may call them.
	mux.Handle("POST /v1/groups/{groupID}/matches/{matchID}/score", RequireAuth(verifier, http.HandlerFunc(handler.SetMatchScore)))
	mux.Handle("POST /v1/groups/{groupID}/matches/{matchID}/finish", RequireAuth(verifier, http.HandlerFunc(handler.FinishMatch)))
	mux.Handle("POST /v1/groups/{groupID}/matches/{matchID}/live", RequireAuth(verifier, http.HandlerFunc(handler.ForceMatchLive)))
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/bootstrap", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunBootstrapJob)))
	mux.Handle("POST /v1/internal/jobs/poll", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunFastPollJob)))
	mux.Handle("POST /v1/internal/jobs/sweep", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunRecoverySweepJob)))
	mux.Handle("GET /v1/internal/jobs/runs", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.ListJobRuns)))
}
