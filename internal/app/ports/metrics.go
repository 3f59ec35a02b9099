package ports

import "satfarm/internal/domain/farm"

type ActionMetrics interface {
	RecordSuccess(action farm.ActionType)
	RecordRejected(reason string)
	RecordFailure()
}

type EnvironmentMetrics interface {
	RecordRefresh(ok bool)
}
