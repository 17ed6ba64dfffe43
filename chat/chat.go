// Package chat builds JSON Text Components, the rich text format used for
// the status description and disconnect reasons.
package chat

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Color string

const (
	Black       Color = "black"
	DarkBlue    Color = "dark_blue"
	DarkGreen   Color = "dark_green"
	DarkAqua    Color = "dark_aqua"
	DarkRed     Color = "dark_red"
	DarkPurple  Color = "dark_purple"
	Gold        Color = "gold"
	Gray        Color = "gray"
	DarkGray    Color = "dark_gray"
	Blue        Color = "blue"
	Green       Color = "green"
	Aqua        Color = "aqua"
	Red         Color = "red"
	LightPurple Color = "light_purple"
	Yellow      Color = "yellow"
	White       Color = "white"
)

var colors = map[Color]struct{}{
	Black: {}, DarkBlue: {}, DarkGreen: {}, DarkAqua: {},
	DarkRed: {}, DarkPurple: {}, Gold: {}, Gray: {},
	DarkGray: {}, Blue: {}, Green: {}, Aqua: {},
	Red: {}, LightPurple: {}, Yellow: {}, White: {},
}

func (c Color) Valid() bool {
	_, ok := colors[c]
	return ok
}

// ParseColor accepts a color token. The empty string means no color.
func ParseColor(s string) (Color, error) {
	c := Color(strings.ToLower(strings.TrimSpace(s)))
	if c == "" || c.Valid() {
		return c, nil
	}
	return "", fmt.Errorf("unknown chat color %q", s)
}

// Component is a text component. Children in Extra inherit the parent's
// style unless they override it.
type Component struct {
	Text          string      `json:"text"`
	Color         Color       `json:"color,omitempty"`
	Bold          bool        `json:"bold,omitempty"`
	Italic        bool        `json:"italic,omitempty"`
	Underlined    bool        `json:"underlined,omitempty"`
	Strikethrough bool        `json:"strikethrough,omitempty"`
	Obfuscated    bool        `json:"obfuscated,omitempty"`
	Extra         []Component `json:"extra,omitempty"`
}

func Text(s string) Component {
	return Component{Text: s}
}

func (c Component) WithColor(col Color) Component {
	c.Color = col
	return c
}

func (c Component) WithBold() Component {
	c.Bold = true
	return c
}

func (c Component) Append(children ...Component) Component {
	c.Extra = append(append([]Component(nil), c.Extra...), children...)
	return c
}

// JSON renders c for the wire.
func (c Component) JSON() string {
	b, _ := json.Marshal(c) // Component has no unmarshalable fields
	return string(b)
}

// String returns the plain text of c and its children.
func (c Component) String() string {
	var sb strings.Builder
	c.plain(&sb)
	return sb.String()
}

func (c Component) plain(sb *strings.Builder) {
	sb.WriteString(c.Text)
	for _, e := range c.Extra {
		e.plain(sb)
	}
}
