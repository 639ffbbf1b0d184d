package hubdto

type SubmitRequest struct {
	Line string `json:"line"`
}

type SubmitResponse struct {
	Token    string `json:"token"`
	Accepted bool   `json:"accepted"`
}

type AnalyzeRequest struct {
	Position string  `json:"position"`
	Moves    string  `json:"moves,omitempty"`
	Depth    int     `json:"depth,omitempty"`
	MoveTime float64 `json:"move_time,omitempty"`
}

type AnalyzeResponse struct {
	Move     string  `json:"move"`
	Ponder   string  `json:"ponder,omitempty"`
	Depth    int     `json:"depth,omitempty"`
	Score    float64 `json:"score,omitempty"`
	Nodes    int64   `json:"nodes,omitempty"`
	Duration float64 `json:"duration_seconds"`
	Cached   bool    `json:"cached"`
}

type HistoryResponse struct {
	Searches []HistoryEntry `json:"searches"`
}

type HistoryEntry struct {
	Token    string  `json:"token"`
	Variant  string  `json:"variant"`
	Position string  `json:"position"`
	Move     string  `json:"move"`
	Ponder   string  `json:"ponder,omitempty"`
	Depth    int     `json:"depth"`
	Score    float64 `json:"score"`
	Nodes    int64   `json:"nodes"`
	Duration float64 `json:"duration_seconds"`
	At       string  `json:"at"`
}
