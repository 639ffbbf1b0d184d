package hubdto

type BridgeError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e BridgeError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Kind != "" {
		return e.Kind
	}
	return "bridge error"
}
