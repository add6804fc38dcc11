package engine

import (
	"encoding/json"
	"encoding/xml"
	"io"
	"strings"

	apperrors "github.com/scrapeline/scrapeline/internal/errors"
)

// Decode parses a response body according to its declared content type.
// JSON and XML produce a generic tree of maps, slices and scalars; CSV and
// unrecognized types come back as the raw text, opaque to this pipeline.
// The content type is matched case-insensitively as a substring.
func Decode(body []byte, contentType string) (any, error) {
	ct := strings.ToLower(contentType)

	switch {
	case strings.Contains(ct, "application/json"):
		var value any
		if err := json.Unmarshal(body, &value); err != nil {
			return nil, &apperrors.DecodeError{ContentType: contentType, Err: err}
		}
		return value, nil
	case strings.Contains(ct, "application/xml"), strings.Contains(ct, "text/xml"):
		value, err := decodeXML(body)
		if err != nil {
			return nil, &apperrors.DecodeError{ContentType: contentType, Err: err}
		}
		return value, nil
	case strings.Contains(ct, "text/csv"):
		return string(body), nil
	default:
		return string(body), nil
	}
}

// decodeXML renders an XML document as a generic map tree: child elements
// become keys (repeats collapse into slices), attributes are prefixed with
// "@", and elements with both attributes and character data keep the text
// under "#text". Leaf elements without attributes decode to their text.
func decodeXML(body []byte) (any, error) {
	decoder := xml.NewDecoder(strings.NewReader(string(body)))

	for {
		tok, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			value, err := decodeXMLElement(decoder, start)
			if err != nil {
				return nil, err
			}
			return map[string]any{start.Name.Local: value}, nil
		}
	}
}

func decodeXMLElement(decoder *xml.Decoder, start xml.StartElement) (any, error) {
	node := map[string]any{}
	for _, attr := range start.Attr {
		node["@"+attr.Name.Local] = attr.Value
	}

	var text strings.Builder
	for {
		tok, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeXMLElement(decoder, t)
			if err != nil {
				return nil, err
			}
			appendXMLChild(node, t.Name.Local, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			content := strings.TrimSpace(text.String())
			if len(node) == 0 {
				return content, nil
			}
			if content != "" {
				node["#text"] = content
			}
			return node, nil
		}
	}
}

func appendXMLChild(node map[string]any, name string, child any) {
	existing, ok := node[name]
	if !ok {
		node[name] = child
		return
	}
	if list, ok := existing.([]any); ok {
		node[name] = append(list, child)
		return
	}
	node[name] = []any{existing, child}
}
