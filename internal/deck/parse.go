package deck

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// parse.go turns a raw generator response into Slide values. Generators wrap
// markup in markdown fences, prepend commentary, or emit several slides in
// one answer — parsing tolerates all of that and keys off slide container
// elements only.

// stripMarkdownFences removes ```html ... ``` or ``` ... ``` wrapping.
// Returns the content between the fences, or the original text if no fences
// are found.
func stripMarkdownFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return text
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 3 {
		return text
	}

	endIdx := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}

	return strings.Join(lines[1:endIdx], "\n")
}

// isSlideContainer reports whether n is a slide container element: any
// element carrying a data-slide attribute, or a <section>/<div>/<article>
// whose class list contains the "slide" token.
func isSlideContainer(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "data-slide" {
			return true
		}
	}
	switch n.Data {
	case "section", "div", "article":
	default:
		return false
	}
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, cls := range strings.Fields(a.Val) {
			if cls == "slide" {
				return true
			}
		}
	}
	return false
}

// parseBody parses fence-stripped text as HTML and returns the <body> node.
func parseBody(text string) (*html.Node, error) {
	doc, err := html.Parse(strings.NewReader(stripMarkdownFences(text)))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	var body *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "body" {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)
	if body == nil {
		return nil, fmt.Errorf("parse html: no body node")
	}
	return body, nil
}

// findSlideContainers collects top-level slide containers. It does not
// descend into a container: nested slide-classed elements belong to the
// slide that holds them.
func findSlideContainers(root *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if isSlideContainer(n) {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return out
}

// HasSlideContainer reports whether text contains at least one slide
// container element. Parse failures count as "no container" — the response
// validator turns that into a rejection rather than an error.
func HasSlideContainer(text string) bool {
	body, err := parseBody(text)
	if err != nil {
		return false
	}
	return len(findSlideContainers(body)) > 0
}

// nodeText concatenates the text children of n.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

// attrValue returns the value of the named attribute, or "".
func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// isCanvasElement reports whether n is a chart drawing surface: a <canvas>
// element or any element marked data-chart.
func isCanvasElement(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if n.Data == "canvas" {
		return true
	}
	for _, a := range n.Attr {
		if a.Key == "data-chart" {
			return true
		}
	}
	return false
}

// collectCanvasIDs returns the id attributes of canvas elements under n,
// in document order, duplicates preserved.
func collectCanvasIDs(n *html.Node) []string {
	var ids []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if isCanvasElement(n) {
			if id := attrValue(n, "id"); id != "" {
				ids = append(ids, id)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return ids
}

// ParseFragment splits a validated generator response into slides. Scripts
// and style blocks are lifted out of each container so they can be checked
// and stored separately from the visual markup.
func ParseFragment(text string) ([]Slide, error) {
	body, err := parseBody(text)
	if err != nil {
		return nil, err
	}

	containers := findSlideContainers(body)
	if len(containers) == 0 {
		return nil, ErrEmptyFragment
	}

	slides := make([]Slide, 0, len(containers))
	for i, container := range containers {
		var scripts []string
		var css strings.Builder
		var lifted []*html.Node

		var walk func(*html.Node)
		walk = func(n *html.Node) {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && c.Data == "script" {
					if body := strings.TrimSpace(nodeText(c)); body != "" {
						scripts = append(scripts, body)
					}
					lifted = append(lifted, c)
					continue
				}
				if c.Type == html.ElementNode && c.Data == "style" {
					css.WriteString(nodeText(c))
					lifted = append(lifted, c)
					continue
				}
				walk(c)
			}
		}
		walk(container)

		for _, n := range lifted {
			n.Parent.RemoveChild(n)
		}

		var rendered strings.Builder
		if err := html.Render(&rendered, container); err != nil {
			return nil, fmt.Errorf("render slide %d: %w", i, err)
		}

		slides = append(slides, Slide{
			Index:     i,
			HTML:      rendered.String(),
			Scripts:   scripts,
			CSS:       strings.TrimSpace(css.String()),
			CanvasIDs: collectCanvasIDs(container),
		})
	}

	return slides, nil
}
