package parser

import (
	"strings"

	ext "github.com/mmcdole/gofeed/extensions"

	"feed_ingestor/internal/domain"
)

const categoryElement = "category"

// ExtractCategories appends a node for every <itunes:category> element to acc
// in pre-order. Elements at this level get parent as their parent index into
// acc; nested categories point at the node of their enclosing element.
// Pass a nil acc and domain.NoParent to start a new forest.
func ExtractCategories(elements []ext.Extension, acc []domain.CategoryNode, parent int) []domain.CategoryNode {
	for _, el := range elements {
		name := strings.TrimSpace(el.Attrs["text"])
		if name == "" {
			continue
		}

		acc = append(acc, domain.CategoryNode{Name: name, Parent: parent})
		idx := len(acc) - 1

		if children := el.Children[categoryElement]; len(children) > 0 {
			acc = ExtractCategories(children, acc, idx)
		}
	}
	return acc
}
