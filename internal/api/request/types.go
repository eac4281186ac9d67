package request

// LoginRequest is the request body for authenticating an identity
type LoginRequest struct {
	Identity string `json:"identity"`
	Secret   string `json:"secret"`
}

// JoinStageRequest is the request body for joining any open room of a stage
type JoinStageRequest struct {
	Stage string `json:"stage"`
}

// SetContextRequest is the request body for writing one carry-over context
// value on a room (e.g. the selected map during preparation)
type SetContextRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
