package snap

import (
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// ExtractAssetPaths parses rendered markup and returns the referenced local
// asset paths (img/src, srcset candidates, source/srcset, link/href), sorted
// and deduplicated. Absolute URLs and data URIs are not local assets and are
// skipped.
func ExtractAssetPaths(markup string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "img", "source":
				for _, attr := range n.Attr {
					switch attr.Key {
					case "src":
						addAssetPath(seen, attr.Val)
					case "srcset":
						for _, candidate := range strings.Split(attr.Val, ",") {
							fields := strings.Fields(strings.TrimSpace(candidate))
							if len(fields) > 0 {
								addAssetPath(seen, fields[0])
							}
						}
					}
				}
			case "link":
				for _, attr := range n.Attr {
					if attr.Key == "href" {
						addAssetPath(seen, attr.Val)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

func addAssetPath(seen map[string]bool, ref string) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return
	}
	if strings.Contains(ref, "://") || strings.HasPrefix(ref, "//") || strings.HasPrefix(ref, "data:") {
		return
	}
	seen[strings.TrimPrefix(ref, "/")] = true
}
