package hub

import (
	"strings"
)

// Pair is a single key/value argument of a HUB line. Flag arguments
// ("go think", "pos start") carry an empty Value.
type Pair struct {
	Key   string
	Value string
}

// Command is one parsed HUB request line. Pairs keep submission order and
// may repeat; lookups are last-wins. Raw retains the original line for
// diagnostics.
type Command struct {
	Name  string
	Pairs []Pair
	Raw   string
}

// Value returns the last value bound to key, or "" when absent.
func (c Command) Value(key string) string {
	v, _ := c.Lookup(key)
	return v
}

// Lookup reports the last value bound to key and whether the key was
// present at all, so empty-valued flags are distinguishable from absence.
func (c Command) Lookup(key string) (string, bool) {
	for i := len(c.Pairs) - 1; i >= 0; i-- {
		if c.Pairs[i].Key == key {
			return c.Pairs[i].Value, true
		}
	}
	return "", false
}

// Has reports whether key appears in the pair list.
func (c Command) Has(key string) bool {
	_, ok := c.Lookup(key)
	return ok
}

// Parse tokenizes one request line. The first token is the command name;
// every following token is either key=value, key="quoted value", or a bare
// flag. A quoted value may span tokens; scanning rejoins them with single
// spaces until a closing quote or end of input. Malformed fragments are
// kept as-is rather than failing the whole line.
func Parse(line string) (Command, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return Command{}, &ProtocolError{Kind: MalformedLine, Message: "missing command"}
	}

	cmd := Command{Name: tokens[0], Raw: line}

	for i := 1; i < len(tokens); i++ {
		tok := tokens[i]
		eq := strings.IndexByte(tok, '=')
		if eq < 0 {
			cmd.Pairs = append(cmd.Pairs, Pair{Key: tok})
			continue
		}
		if eq == 0 {
			// "=foo" has no key; skip the fragment, keep the line.
			continue
		}

		key := tok[:eq]
		value := tok[eq+1:]
		if strings.HasPrefix(value, `"`) && !isClosedQuote(value) {
			var sb strings.Builder
			sb.WriteString(value)
			for i+1 < len(tokens) {
				i++
				sb.WriteByte(' ')
				sb.WriteString(tokens[i])
				if strings.HasSuffix(tokens[i], `"`) {
					break
				}
			}
			value = sb.String()
		}
		cmd.Pairs = append(cmd.Pairs, Pair{Key: key, Value: unquote(value)})
	}

	return cmd, nil
}

// String re-emits the command in wire form. Values containing spaces are
// quoted; empty-valued pairs are emitted as bare flags.
func (c Command) String() string {
	var sb strings.Builder
	sb.WriteString(c.Name)
	for _, p := range c.Pairs {
		sb.WriteByte(' ')
		sb.WriteString(p.Key)
		if p.Value == "" {
			continue
		}
		sb.WriteByte('=')
		sb.WriteString(quoteIfNeeded(p.Value))
	}
	return sb.String()
}

// isClosedQuote reports whether a token that starts with a quote also ends
// one, i.e. the value is complete within a single token.
func isClosedQuote(tok string) bool {
	return len(tok) >= 2 && strings.HasSuffix(tok, `"`)
}

func unquote(v string) string {
	v = strings.TrimPrefix(v, `"`)
	v = strings.TrimSuffix(v, `"`)
	return v
}

func quoteIfNeeded(v string) string {
	if strings.ContainsAny(v, " \t") {
		return `"` + v + `"`
	}
	return v
}
