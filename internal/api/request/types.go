package request

// JoinRoomRequest is the request body for joining a room
type JoinRoomRequest struct {
	Name string `json:"name"`
}

// ClaimHostRequest is the request body for claiming host
type ClaimHostRequest struct {
	Name string `json:"name"`
}

// StartRoomRequest is the request body for starting a room
type StartRoomRequest struct {
	PlayerName string `json:"player_name"`
}

// SubmitResultRequest is the request body for submitting a result
type SubmitResultRequest struct {
	PlayerName string `json:"player_name"`
	Score      int    `json:"score"`
	TotalTime  int    `json:"total_time"`
	BestStreak int    `json:"best_streak"`
}
