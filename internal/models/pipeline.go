package models

// PipelineState: состояние стримера одного символа.
type PipelineState int32

const (
	StateIdle PipelineState = iota
	StateBackfilling
	StateWarmingUp
	StateLive
	StateReconnecting
	StateAborted
)

func (s PipelineState) String() string {
	switch s {
	case StateBackfilling:
		return "BACKFILLING"
	case StateWarmingUp:
		return "WARMING_UP"
	case StateLive:
		return "LIVE"
	case StateReconnecting:
		return "RECONNECTING"
	case StateAborted:
		return "ABORTED"
	default:
		return "IDLE"
	}
}
