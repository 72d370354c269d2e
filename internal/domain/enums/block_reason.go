package enums

type BlockReason string

const (
	BlockReasonAuto   BlockReason = "auto"
	BlockReasonManual BlockReason = "manual"
)
