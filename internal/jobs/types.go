package jobs

const (
	TaskWarmSeason = "cache:warm_season"
	TaskSweep      = "cache:sweep"
)

const QueueCache = "cache"

type WarmSeasonPayload struct {
	Season int `json:"season"`
}

type SweepPayload struct {
	Reason string `json:"reason,omitempty"`
}
