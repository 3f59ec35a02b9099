package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog"

	"satfarm/internal/app/action"
	"satfarm/internal/app/ports"
	"satfarm/internal/app/replay"
	"satfarm/internal/app/status"
	"satfarm/internal/domain/farm"
)

// FarmControl is the slice of the session the handler drives directly.
type FarmControl interface {
	ID() string
	Select(ctx context.Context, parcelID int) error
	SetAutoIrrigation(ctx context.Context, enabled bool) error
	RefreshEnvironment(ctx context.Context, hint *farm.Location) (farm.EnvironmentSnapshot, error)
	Environment(ctx context.Context) (farm.EnvironmentSnapshot, error)
}

type Handler struct {
	Farm       FarmControl
	ActionUC   action.UseCase
	StatusUC   status.UseCase
	ReplayUC   replay.UseCase
	Scoreboard ports.ScoreboardRepository
	KPI        kpiSnapshotProvider
	Log        zerolog.Logger

	// AllowOrigin defaults to "*".
	AllowOrigin string
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(corsMiddleware(h.AllowOrigin))

	api := s.Group("/api")
	api.GET("/farm", h.farm)
	api.POST("/farm/action", h.action)
	api.POST("/farm/select", h.selectParcel)
	api.GET("/crops", h.crops)
	api.GET("/environment", h.environment)
	api.POST("/environment/refresh", h.refreshEnvironment)
	api.POST("/irrigation/auto", h.autoIrrigation)
	api.GET("/journal", h.journal)
	api.GET("/scoreboard", h.scoreboard)

	s.GET("/ops/kpi", h.kpi)
}

type selectRequest struct {
	ParcelID int `json:"parcel_id"`
}

type autoIrrigationRequest struct {
	Enabled *bool `json:"enabled"`
}

type refreshRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Label     string   `json:"label,omitempty"`
}

type environmentResponse struct {
	Environment farm.EnvironmentSnapshot `json:"environment"`
	Degraded    bool                     `json:"degraded"`
}

func (h Handler) farm(c context.Context, ctx *app.RequestContext) {
	resp, err := h.StatusUC.Execute(c, status.Request{IncludeCrops: queryBool(ctx, "crops")})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) action(c context.Context, ctx *app.RequestContext) {
	var body action.Request
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}

	resp, err := h.ActionUC.Execute(c, body)
	if err != nil {
		if writeActionRejectedFromErr(ctx, err) {
			return
		}
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) selectParcel(c context.Context, ctx *app.RequestContext) {
	var body selectRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if body.ParcelID <= 0 {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "parcel_id is required")
		return
	}
	if err := h.Farm.Select(c, body.ParcelID); err != nil {
		writeError(ctx, err)
		return
	}
	h.farm(c, ctx)
}

func (h Handler) crops(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]any{"crops": h.StatusUC.Crops()})
}

func (h Handler) environment(c context.Context, ctx *app.RequestContext) {
	env, err := h.Farm.Environment(c)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, environmentResponse{Environment: env})
}

// refreshEnvironment reports a degraded refresh as a successful response
// carrying the fallback snapshot and its advisory.
func (h Handler) refreshEnvironment(c context.Context, ctx *app.RequestContext) {
	var body refreshRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	hint, err := body.location()
	if err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_location", err.Error())
		return
	}

	env, err := h.Farm.RefreshEnvironment(c, hint)
	if err != nil {
		if env.RefreshedAt.IsZero() {
			writeError(ctx, err)
			return
		}
		h.Log.Warn().Err(err).Msg("environment refresh degraded")
		ctx.JSON(consts.StatusOK, environmentResponse{Environment: env, Degraded: true})
		return
	}
	ctx.JSON(consts.StatusOK, environmentResponse{Environment: env})
}

func (r refreshRequest) location() (*farm.Location, error) {
	if r.Latitude == nil && r.Longitude == nil {
		return nil, nil
	}
	if r.Latitude == nil || r.Longitude == nil {
		return nil, errors.New("latitude and longitude must be given together")
	}
	if *r.Latitude < -90 || *r.Latitude > 90 || *r.Longitude < -180 || *r.Longitude > 180 {
		return nil, errors.New("coordinates out of range")
	}
	return &farm.Location{Latitude: *r.Latitude, Longitude: *r.Longitude, Label: strings.TrimSpace(r.Label)}, nil
}

func (h Handler) autoIrrigation(c context.Context, ctx *app.RequestContext) {
	var body autoIrrigationRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if body.Enabled == nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "enabled is required")
		return
	}
	if err := h.Farm.SetAutoIrrigation(c, *body.Enabled); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"auto_irrigation": *body.Enabled})
}

func (h Handler) journal(c context.Context, ctx *app.RequestContext) {
	limit, _ := strconv.Atoi(string(ctx.Query("limit")))
	occurredFrom, _ := strconv.ParseInt(string(ctx.Query("occurred_from")), 10, 64)
	occurredTo, _ := strconv.ParseInt(string(ctx.Query("occurred_to")), 10, 64)
	sessionID := strings.TrimSpace(string(ctx.Query("session_id")))
	if sessionID == "" && h.Farm != nil {
		sessionID = h.Farm.ID()
	}
	var types []string
	if raw := strings.TrimSpace(string(ctx.Query("types"))); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
	}
	resp, err := h.ReplayUC.Execute(c, replay.Request{
		SessionID:    sessionID,
		Limit:        limit,
		Types:        types,
		OccurredFrom: occurredFrom,
		OccurredTo:   occurredTo,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

type scoreView struct {
	SessionID string `json:"session_id"`
	Balance   int    `json:"balance"`
	XP        int    `json:"xp"`
	Day       int    `json:"day"`
	Planted   int    `json:"planted"`
	UpdatedAt int64  `json:"updated_at"`
}

func (h Handler) scoreboard(c context.Context, ctx *app.RequestContext) {
	if h.Scoreboard == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "scoreboard not configured")
		return
	}
	limit, _ := strconv.Atoi(string(ctx.Query("limit")))
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	recs, err := h.Scoreboard.Top(c, limit)
	if err != nil {
		writeError(ctx, err)
		return
	}
	out := make([]scoreView, 0, len(recs))
	for _, r := range recs {
		out = append(out, scoreView{
			SessionID: r.SessionID,
			Balance:   r.Balance,
			XP:        r.XP,
			Day:       r.Day,
			Planted:   r.Planted,
			UpdatedAt: r.UpdatedAt.Unix(),
		})
	}
	ctx.JSON(consts.StatusOK, map[string]any{"scores": out})
}

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "kpi provider not configured")
		return
	}
	ctx.JSON(consts.StatusOK, h.KPI.SnapshotAny())
}

func decodeJSON(ctx *app.RequestContext, out any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func queryBool(ctx *app.RequestContext, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(string(ctx.Query(key))))
	return err == nil && v
}

func writeError(ctx *app.RequestContext, err error) {
	switch {
	case errors.Is(err, farm.ErrInsufficientFunds):
		writeErrorBody(ctx, consts.StatusConflict, "insufficient_funds", err.Error())
	case errors.Is(err, farm.ErrParcelEmpty):
		writeErrorBody(ctx, consts.StatusConflict, "parcel_empty", err.Error())
	case errors.Is(err, farm.ErrParcelOccupied):
		writeErrorBody(ctx, consts.StatusConflict, "parcel_occupied", err.Error())
	case errors.Is(err, farm.ErrUnknownCrop):
		writeErrorBody(ctx, consts.StatusBadRequest, "unknown_crop", err.Error())
	case errors.Is(err, farm.ErrUnknownAction):
		writeErrorBody(ctx, consts.StatusBadRequest, "unknown_action", err.Error())
	case errors.Is(err, action.ErrInvalidActionParams):
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_action_params", err.Error())
	case errors.Is(err, action.ErrInvalidRequest),
		errors.Is(err, replay.ErrInvalidRequest):
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, ports.ErrNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ports.ErrConflict):
		writeErrorBody(ctx, consts.StatusConflict, "conflict", err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeErrorBody(ctx, consts.StatusServiceUnavailable, "busy", "session busy")
	default:
		writeErrorBody(ctx, consts.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func writeActionRejectedFromErr(ctx *app.RequestContext, err error) bool {
	var rejected *action.ActionRejectedError
	switch {
	case errors.As(err, &rejected) && rejected != nil:
		status := consts.StatusConflict
		if errors.Is(err, farm.ErrUnknownCrop) || errors.Is(err, farm.ErrUnknownAction) {
			status = consts.StatusBadRequest
		}
		writeActionRejected(ctx, status, action.ReasonCode(err), err.Error(), map[string]any{
			"parcel_id": rejected.ParcelID,
			"action":    string(rejected.Action),
			"cost":      rejected.Cost,
		})
		return true
	case errors.Is(err, action.ErrInvalidActionParams):
		writeActionRejected(ctx, consts.StatusBadRequest, "invalid_action_params", err.Error(), nil)
		return true
	case errors.Is(err, action.ErrInvalidRequest):
		writeActionRejected(ctx, consts.StatusBadRequest, "bad_request", err.Error(), nil)
		return true
	default:
		return false
	}
}

func writeActionRejected(ctx *app.RequestContext, status int, code, message string, details map[string]any) {
	ctx.JSON(status, map[string]any{
		"result_code": "REJECTED",
		"error": map[string]any{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
