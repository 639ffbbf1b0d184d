package hub

import (
	"fmt"
	"strconv"
	"strings"
)

// Event is one parsed HUB response line.
type Event interface {
	// Kind returns the response keyword ("id", "info", "done", ...).
	Kind() string
	// String re-emits the wire form, newline excluded.
	String() string
}

type IDEvent struct {
	Name    string
	Version string
	Author  string
	Country string
}

func (IDEvent) Kind() string { return "id" }

func (e IDEvent) String() string {
	c := Command{Name: "id"}
	c.Pairs = append(c.Pairs,
		Pair{Key: "name", Value: e.Name},
		Pair{Key: "version", Value: e.Version},
		Pair{Key: "author", Value: e.Author},
		Pair{Key: "country", Value: e.Country},
	)
	return c.String()
}

// ParamEvent describes one entry of the parameter catalogue. Min and Max
// are meaningful only for "int" typed parameters, Values only for "enum".
type ParamEvent struct {
	Name   string
	Value  string
	Type   string
	Min    int
	Max    int
	Values []string
}

func (ParamEvent) Kind() string { return "param" }

func (e ParamEvent) String() string {
	c := Command{Name: "param"}
	c.Pairs = append(c.Pairs,
		Pair{Key: "name", Value: e.Name},
		Pair{Key: "value", Value: e.Value},
		Pair{Key: "type", Value: e.Type},
	)
	switch e.Type {
	case "int":
		c.Pairs = append(c.Pairs,
			Pair{Key: "min", Value: strconv.Itoa(e.Min)},
			Pair{Key: "max", Value: strconv.Itoa(e.Max)},
		)
	case "enum":
		c.Pairs = append(c.Pairs, Pair{Key: "values", Value: strings.Join(e.Values, " ")})
	}
	return c.String()
}

type WaitEvent struct{}

func (WaitEvent) Kind() string   { return "wait" }
func (WaitEvent) String() string { return "wait" }

type ReadyEvent struct{}

func (ReadyEvent) Kind() string   { return "ready" }
func (ReadyEvent) String() string { return "ready" }

type PongEvent struct{}

func (PongEvent) Kind() string   { return "pong" }
func (PongEvent) String() string { return "pong" }

// InfoEvent carries periodic search progress. Zero-valued numeric fields
// and an empty PV are omitted from the wire form.
type InfoEvent struct {
	Depth     int
	MeanDepth float64
	Score     float64
	HasScore  bool
	Nodes     int64
	Time      float64
	NPS       float64
	PV        []string
}

func (InfoEvent) Kind() string { return "info" }

func (e InfoEvent) String() string {
	c := Command{Name: "info"}
	if e.Depth > 0 {
		c.Pairs = append(c.Pairs, Pair{Key: "depth", Value: strconv.Itoa(e.Depth)})
	}
	if e.MeanDepth > 0 {
		c.Pairs = append(c.Pairs, Pair{Key: "mean-depth", Value: formatFloat(e.MeanDepth)})
	}
	if e.HasScore {
		c.Pairs = append(c.Pairs, Pair{Key: "score", Value: formatFloat(e.Score)})
	}
	if e.Nodes > 0 {
		c.Pairs = append(c.Pairs, Pair{Key: "nodes", Value: strconv.FormatInt(e.Nodes, 10)})
	}
	if e.Time > 0 {
		c.Pairs = append(c.Pairs, Pair{Key: "time", Value: formatFloat(e.Time)})
	}
	if e.NPS > 0 {
		c.Pairs = append(c.Pairs, Pair{Key: "nps", Value: formatFloat(e.NPS)})
	}
	if len(e.PV) > 0 {
		c.Pairs = append(c.Pairs, Pair{Key: "pv", Value: strings.Join(e.PV, " ")})
	}
	return c.String()
}

// DoneEvent reports the outcome of a search. Ponder may be empty.
type DoneEvent struct {
	Move   string
	Ponder string
}

func (DoneEvent) Kind() string { return "done" }

func (e DoneEvent) String() string {
	c := Command{Name: "done"}
	if e.Move != "" {
		c.Pairs = append(c.Pairs, Pair{Key: "move", Value: e.Move})
	}
	if e.Ponder != "" {
		c.Pairs = append(c.Pairs, Pair{Key: "ponder", Value: e.Ponder})
	}
	return c.String()
}

type ErrorEvent struct {
	Message string
}

func (ErrorEvent) Kind() string { return "error" }

func (e ErrorEvent) String() string {
	c := Command{Name: "error", Pairs: []Pair{{Key: "message", Value: e.Message}}}
	return c.String()
}

// ParseEvent parses one response line into its typed event. Unknown
// response keywords are an error; response vocabulary is closed, unlike
// request arguments.
func ParseEvent(line string) (Event, error) {
	c, err := Parse(line)
	if err != nil {
		return nil, err
	}

	switch c.Name {
	case "id":
		return IDEvent{
			Name:    c.Value("name"),
			Version: c.Value("version"),
			Author:  c.Value("author"),
			Country: c.Value("country"),
		}, nil
	case "param":
		e := ParamEvent{
			Name:  c.Value("name"),
			Value: c.Value("value"),
			Type:  c.Value("type"),
		}
		if e.Type == "int" {
			e.Min, _ = strconv.Atoi(c.Value("min"))
			e.Max, _ = strconv.Atoi(c.Value("max"))
		}
		if v := c.Value("values"); v != "" {
			e.Values = strings.Fields(v)
		}
		return e, nil
	case "wait":
		return WaitEvent{}, nil
	case "ready":
		return ReadyEvent{}, nil
	case "pong":
		return PongEvent{}, nil
	case "info":
		e := InfoEvent{}
		e.Depth, _ = strconv.Atoi(c.Value("depth"))
		e.MeanDepth, _ = strconv.ParseFloat(c.Value("mean-depth"), 64)
		if v, ok := c.Lookup("score"); ok {
			e.Score, _ = strconv.ParseFloat(v, 64)
			e.HasScore = true
		}
		e.Nodes, _ = strconv.ParseInt(c.Value("nodes"), 10, 64)
		e.Time, _ = strconv.ParseFloat(c.Value("time"), 64)
		e.NPS, _ = strconv.ParseFloat(c.Value("nps"), 64)
		if v := c.Value("pv"); v != "" {
			e.PV = strings.Fields(v)
		}
		return e, nil
	case "done":
		return DoneEvent{Move: c.Value("move"), Ponder: c.Value("ponder")}, nil
	case "error":
		return ErrorEvent{Message: c.Value("message")}, nil
	default:
		return nil, fmt.Errorf("unknown response keyword %q", c.Name)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
