package interceptors

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// bodyBounds returns the offsets just after the first <body> start tag and
// at the last </body> end tag. Tags inside comments or raw-text elements do
// not count. A missing tag yields -1.
func bodyBounds(doc string) (start, end int) {
	z := html.NewTokenizer(strings.NewReader(doc))
	start, end = -1, -1
	offset := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return start, end
		}
		n := len(z.Raw())
		switch tt {
		case html.StartTagToken:
			if start < 0 {
				if name, _ := z.TagName(); atom.Lookup(name) == atom.Body {
					start = offset + n
				}
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); atom.Lookup(name) == atom.Body {
				end = offset
			}
		}
		offset += n
	}
}

// InjectBeforeBodyEnd inserts fragment before the last </body> of doc, or
// appends it when doc has none.
func InjectBeforeBodyEnd(doc, fragment string) string {
	_, at := bodyBounds(doc)
	if at < 0 {
		return doc + fragment
	}
	return doc[:at] + fragment + doc[at:]
}
