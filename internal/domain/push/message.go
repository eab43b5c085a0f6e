// internal/domain/push/message.go
package push

import "strings"

// Message is a structured (flex) push payload.
type Message struct {
	Type     string `json:"type"`
	AltText  string `json:"altText"`
	Contents Bubble `json:"contents"`
}

type Bubble struct {
	Type   string        `json:"type"`
	Size   string        `json:"size,omitempty"`
	Header *Component    `json:"header,omitempty"`
	Body   *Component    `json:"body,omitempty"`
	Footer *Component    `json:"footer,omitempty"`
	Styles *BubbleStyles `json:"styles,omitempty"`
}

type BubbleStyles struct {
	Footer *BlockStyle `json:"footer,omitempty"`
}

type BlockStyle struct {
	Separator bool `json:"separator"`
}

// Component is a box, text, separator or button node.
type Component struct {
	Type            string      `json:"type"`
	Layout          string      `json:"layout,omitempty"`
	Contents        []Component `json:"contents,omitempty"`
	Text            string      `json:"text,omitempty"`
	Size            string      `json:"size,omitempty"`
	Weight          string      `json:"weight,omitempty"`
	Color           string      `json:"color,omitempty"`
	Margin          string      `json:"margin,omitempty"`
	Gravity         string      `json:"gravity,omitempty"`
	AlignItems      string      `json:"alignItems,omitempty"`
	Wrap            bool        `json:"wrap,omitempty"`
	Flex            *int        `json:"flex,omitempty"`
	BackgroundColor string      `json:"backgroundColor,omitempty"`
	PaddingAll      string      `json:"paddingAll,omitempty"`
	Action          *Action     `json:"action,omitempty"`
	Style           string      `json:"style,omitempty"`
	Height          string      `json:"height,omitempty"`
}

type Action struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	URI   string `json:"uri"`
}

// PrimaryAction returns the first link action found in the bubble, or nil.
func (m Message) PrimaryAction() *Action {
	for _, c := range []*Component{m.Contents.Header, m.Contents.Body, m.Contents.Footer} {
		if a := findAction(c); a != nil {
			return a
		}
	}
	return nil
}

// PrimaryURI returns the URI of PrimaryAction, or "".
func (m Message) PrimaryURI() string {
	if a := m.PrimaryAction(); a != nil {
		return a.URI
	}
	return ""
}

// PlainText flattens the body texts into lines, for channels without rich layouts.
func (m Message) PlainText() string {
	var lines []string
	collectText(m.Contents.Body, &lines)
	return strings.Join(lines, "\n")
}

func findAction(c *Component) *Action {
	if c == nil {
		return nil
	}
	if c.Action != nil && c.Action.URI != "" {
		return c.Action
	}
	for i := range c.Contents {
		if a := findAction(&c.Contents[i]); a != nil {
			return a
		}
	}
	return nil
}

func collectText(c *Component, lines *[]string) {
	if c == nil {
		return
	}
	if c.Type == "text" && c.Text != "" {
		*lines = append(*lines, c.Text)
	}
	for i := range c.Contents {
		collectText(&c.Contents[i], lines)
	}
}
