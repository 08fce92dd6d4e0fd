package api

import (
	"sort"
	"time"

	models "KellyMux/internal/domain/models"
	domrepo "KellyMux/internal/domain/repository"
	"KellyMux/internal/usecase"
	xhttp "KellyMux/pkg/http"
	xmw "KellyMux/pkg/http/middleware"
	xlogger "KellyMux/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AdminEchoHandler exposes the admin protocol over HTTP. The command endpoint
// keeps the wire shape of the original admin channel; the read endpoints are
// operator conveniences.
type AdminEchoHandler struct {
	logger    *xlogger.Logger
	engine    *usecase.Engine
	audit     domrepo.AuditLog
	snapshots domrepo.SnapshotCache
}

func NewAdminEchoHandler(logger *xlogger.Logger, engine *usecase.Engine, audit domrepo.AuditLog, snapshots domrepo.SnapshotCache) *AdminEchoHandler {
	return &AdminEchoHandler{logger: logger, engine: engine, audit: audit, snapshots: snapshots}
}

func (h *AdminEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/admin", h.Command, xmw.RateLimit(20, 10))
	g.GET("/clients", h.Clients)
	g.GET("/aggregate", h.Aggregate)
	g.GET("/audit", h.Audit)
}

// Command decodes one admin command and applies it to the engine. Protocol
// errors come back as ERROR acknowledgments naming the cause; the engine
// itself cannot fail.
func (h *AdminEchoHandler) Command(c echo.Context) error {
	req := &models.AdminCommandRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	cmd, err := req.Command()
	if err != nil {
		h.journal(c, models.Command{Raw: req.Cmd}, err.Error())
		return xhttp.BadRequestResponse(c, models.AdminAck{Status: "ERROR", Msg: err.Error()})
	}

	switch cmd.Kind {
	case models.CommandAdd, models.CommandUpdate:
		h.engine.AddOrUpdateClient(cmd.ID, cmd.Mu, cmd.Sigma)
		h.journal(c, cmd, "OK")
		return xhttp.SuccessResponse(c, models.AdminAck{Status: "OK", Msg: "Client updated"})
	case models.CommandRemove:
		h.engine.RemoveClient(cmd.ID)
		h.journal(c, cmd, "OK")
		return xhttp.SuccessResponse(c, models.AdminAck{Status: "OK", Msg: "Client removed"})
	default:
		msg := "Unknown command '" + cmd.Raw + "'"
		h.journal(c, cmd, msg)
		return xhttp.BadRequestResponse(c, models.AdminAck{Status: "ERROR", Msg: msg})
	}
}

// Clients returns the current roster, sorted by id.
func (h *AdminEchoHandler) Clients(c echo.Context) error {
	roster := h.engine.Clients()

	entries := make([]models.ClientEntry, 0, len(roster))
	for id, p := range roster {
		entries = append(entries, models.ClientEntry{ID: id, Mu: p.Mu, Sigma: p.Sigma})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	return xhttp.SuccessResponse(c, entries)
}

// Aggregate returns the last published aggregate from the snapshot cache.
func (h *AdminEchoHandler) Aggregate(c echo.Context) error {
	p, found, err := h.snapshots.LoadAggregate(c.Request().Context())
	if err != nil {
		h.logger.Error("aggregate snapshot read failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if !found {
		return xhttp.NotFoundResponse(c, "no aggregate published yet")
	}
	return xhttp.SuccessResponse(c, p)
}

// Audit returns the most recent admin commands from the journal.
func (h *AdminEchoHandler) Audit(c echo.Context) error {
	req := &models.AuditRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	entries, err := h.audit.Recent(c.Request().Context(), req.Limit)
	if err != nil {
		h.logger.Error("audit query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, entries)
}

func (h *AdminEchoHandler) journal(c echo.Context, cmd models.Command, outcome string) {
	entry := models.AuditEntry{
		At:       time.Now(),
		Cmd:      cmd.Raw,
		ClientID: cmd.ID,
		Mu:       cmd.Mu,
		Sigma:    cmd.Sigma,
		Outcome:  outcome,
	}
	if err := h.audit.Record(c.Request().Context(), entry); err != nil {
		h.logger.Warn("audit record failed", xlogger.Error(err))
	}
}
