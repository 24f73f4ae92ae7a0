package notion

import (
	"regexp"
	"strings"
)

// Block is one Notion block object as sent to the pages API.
type Block map[string]any

var imagePattern = regexp.MustCompile(`^!\[([^\]]*)\]\(([^)]+)\)$`)

// MarkdownToBlocks converts a markdown document into Notion block objects.
// It covers the constructs reports actually emit: headings one to three,
// dividers, bullet and numbered lists, standalone images, and paragraphs.
func MarkdownToBlocks(markdown string) []Block {
	var blocks []Block
	for _, raw := range strings.Split(markdown, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "### "):
			blocks = append(blocks, textBlock("heading_3", strings.TrimPrefix(line, "### ")))
		case strings.HasPrefix(line, "## "):
			blocks = append(blocks, textBlock("heading_2", strings.TrimPrefix(line, "## ")))
		case strings.HasPrefix(line, "# "):
			blocks = append(blocks, textBlock("heading_1", strings.TrimPrefix(line, "# ")))
		case line == "---" || line == "***":
			blocks = append(blocks, Block{
				"object":  "block",
				"type":    "divider",
				"divider": map[string]any{},
			})
		case strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* "):
			blocks = append(blocks, textBlock("bulleted_list_item", line[2:]))
		case numberedItem(line) != "":
			blocks = append(blocks, textBlock("numbered_list_item", numberedItem(line)))
		case imagePattern.MatchString(line):
			m := imagePattern.FindStringSubmatch(line)
			blocks = append(blocks, Block{
				"object": "block",
				"type":   "image",
				"image": map[string]any{
					"type": "external",
					"external": map[string]any{
						"url": m[2],
					},
				},
			})
		default:
			blocks = append(blocks, textBlock("paragraph", line))
		}
	}
	return blocks
}

func textBlock(kind, text string) Block {
	return Block{
		"object": "block",
		"type":   kind,
		kind: map[string]any{
			"rich_text": []map[string]any{
				{
					"type": "text",
					"text": map[string]any{"content": stripEmphasis(text)},
				},
			},
		},
	}
}

// numberedItem returns the content of a "1. item" line, or "" if the line is
// not a numbered list entry.
func numberedItem(line string) string {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i+2 > len(line) || line[i] != '.' || line[i+1] != ' ' {
		return ""
	}
	return strings.TrimSpace(line[i+2:])
}

// stripEmphasis drops bold and italic markers the rich text API would
// otherwise render literally.
func stripEmphasis(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	return strings.ReplaceAll(s, "__", "")
}
