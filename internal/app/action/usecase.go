package action

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"satfarm/internal/app/ports"
	"satfarm/internal/app/session"
	"satfarm/internal/domain/farm"
)

type Runner interface {
	ApplyAction(ctx context.Context, cmd session.ActionCommand) (session.ActionResult, error)
}

type UseCase struct {
	Session Runner
	Metrics ports.ActionMetrics
	Log     zerolog.Logger
}

func (u UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	cmd, err := validate(req)
	if err != nil {
		return Response{}, err
	}

	res, err := u.Session.ApplyAction(ctx, cmd)
	if err != nil {
		if code := ReasonCode(err); code != "" {
			u.recordRejected(code)
			return Response{}, &ActionRejectedError{
				ParcelID: cmd.ParcelID,
				Action:   cmd.Action,
				Cost:     res.Cost,
				Reason:   err,
			}
		}
		if errors.Is(err, ports.ErrNotFound) {
			u.recordRejected("parcel_not_found")
			return Response{}, err
		}
		if u.Metrics != nil {
			u.Metrics.RecordFailure()
		}
		u.Log.Error().Err(err).Int("parcel_id", cmd.ParcelID).Str("action", string(cmd.Action)).Msg("action failed")
		return Response{}, err
	}

	if u.Metrics != nil {
		u.Metrics.RecordSuccess(cmd.Action)
	}
	return Response{
		Parcel:       res.Parcel,
		Player:       res.Player,
		BalanceDelta: res.BalanceDelta,
		XPDelta:      res.XPDelta,
		Yield:        res.Yield,
		ResultCode:   "ok",
	}, nil
}

func validate(req Request) (session.ActionCommand, error) {
	action := farm.ActionType(strings.ToLower(strings.TrimSpace(req.Action)))
	crop := farm.CropID(strings.TrimSpace(req.CropID))
	if req.ParcelID <= 0 || !farm.IsSupportedAction(action) {
		return session.ActionCommand{}, ErrInvalidRequest
	}
	if action == farm.ActionPlant && crop == "" {
		return session.ActionCommand{}, ErrInvalidActionParams
	}
	if action != farm.ActionPlant {
		crop = ""
	}
	return session.ActionCommand{ParcelID: req.ParcelID, Action: action, CropID: crop}, nil
}

func (u UseCase) recordRejected(code string) {
	if u.Metrics != nil {
		u.Metrics.RecordRejected(code)
	}
}
