package results

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnexpectedShape = errors.New("unexpected response shape")
	ErrFileWrite       = errors.New("failed to write result")
)

// Shape identifies which response layout the service returned.
type Shape int

const (
	// ShapeLegacy carries a single Markdown string at result.markdown.
	ShapeLegacy Shape = iota
	// ShapeMultiPage carries one entry per page in result.layoutParsingResults.
	ShapeMultiPage
)

func (s Shape) String() string {
	if s == ShapeMultiPage {
		return "multi-page"
	}
	return "legacy"
}

// Document is a recognition response reduced to its Markdown content. The
// response layout is decided once, in Parse.
type Document struct {
	Shape Shape
	// Pages holds per-page Markdown for ShapeMultiPage, in service order.
	Pages []string
	// Markdown holds the text for ShapeLegacy; HasMarkdown is false when the
	// field was absent or empty.
	Markdown    string
	HasMarkdown bool

	raw any
}

// PageCount returns the number of Markdown pages the document will produce.
func (d *Document) PageCount() int {
	if d.Shape == ShapeMultiPage {
		return len(d.Pages)
	}
	return 1
}

type envelope struct {
	Result *struct {
		LayoutParsingResults *[]pageResult `json:"layoutParsingResults"`
		Markdown             *string       `json:"markdown"`
	} `json:"result"`
}

type pageResult struct {
	Markdown *struct {
		Text string `json:"text"`
	} `json:"markdown"`
}

// Parse decodes a response body and resolves its shape.
func Parse(body []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedShape, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedShape, err)
	}

	doc := &Document{raw: raw}
	if env.Result != nil && env.Result.LayoutParsingResults != nil {
		doc.Shape = ShapeMultiPage
		pages := *env.Result.LayoutParsingResults
		doc.Pages = make([]string, len(pages))
		for i, p := range pages {
			if p.Markdown != nil {
				doc.Pages[i] = p.Markdown.Text
			}
		}
		return doc, nil
	}

	doc.Shape = ShapeLegacy
	if env.Result != nil && env.Result.Markdown != nil {
		doc.Markdown = *env.Result.Markdown
		doc.HasMarkdown = doc.Markdown != ""
	}
	return doc, nil
}
