package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/hearth/pkg/authsdk"
	"github.com/aussiebroadwan/hearth/pkg/httpx"
)

// LivezHandler godoc
//
//	@Summary		Liveness probe
//	@Description	Reports that the process is serving requests.
//	@Description	Never touches the refresh store, the blacklist or Redis.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startedAt time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startedAt).Truncate(time.Second).String(),
			Version: version,
		})
	}
}
