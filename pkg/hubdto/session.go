package hubdto

import "time"

type SessionStatus struct {
	Status    string    `json:"status"`
	LastError string    `json:"last_error,omitempty"`
	Position  string    `json:"position"`
	Book      bool      `json:"book"`
	Bitbase   bool      `json:"bitbase"`
	Engine    *Identity `json:"engine,omitempty"`
	Uptime    float64   `json:"uptime_seconds"`
}

type Identity struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Author  string `json:"author"`
	Country string `json:"country"`
}

type EventMessage struct {
	Kind string    `json:"kind"`
	Line string    `json:"line"`
	At   time.Time `json:"at"`
}
