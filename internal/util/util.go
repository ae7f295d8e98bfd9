// Package util provides utility functions for content hashing and front matter parsing.
package util

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

func ContentHashString(content string) string {
	return ContentHash([]byte(content))
}

var frontMatterDelimiter = []byte("%%%")

// FrontMatter is the TOML block between two %%% lines at the top of a markdown file.
type FrontMatter struct {
	Title string    `toml:"title"`
	Date  time.Time `toml:"date"`
	Image string    `toml:"image"`

	// Number of bytes of the normalized input taken by the block.
	Consumed int `toml:"-"`
}

func GetFrontMatter(md []byte) (*FrontMatter, error) {
	md = markdown.NormalizeNewlines(md)
	md = bytes.TrimLeft(md, "\n \t\r")

	if !bytes.HasPrefix(md, frontMatterDelimiter) {
		return nil, fmt.Errorf("invalid front matter format")
	}

	start := len(frontMatterDelimiter)
	if start >= len(md) || md[start] != '\n' {
		return nil, fmt.Errorf("invalid front matter format")
	}

	closing := bytes.Index(md[start:], append([]byte("\n"), frontMatterDelimiter...))
	if closing == -1 {
		return nil, fmt.Errorf("invalid front matter format")
	}

	block := md[start : start+closing]
	end := start + closing + 1 + len(frontMatterDelimiter)
	if end < len(md) && md[end] == '\n' {
		end++
	}

	info := &FrontMatter{}
	if _, err := toml.Decode(string(block), info); err != nil {
		return nil, fmt.Errorf("failed to decode front matter: %w", err)
	}
	info.Consumed = end

	return info, nil
}

// StripFrontMatter returns md without its front matter block, if it has one.
func StripFrontMatter(md []byte) []byte {
	info, err := GetFrontMatter(md)
	if err != nil {
		return md
	}
	md = markdown.NormalizeNewlines(md)
	md = bytes.TrimLeft(md, "\n \t\r")
	return md[info.Consumed:]
}

// FirstHeading returns the text of the first level-one heading in md, or "".
func FirstHeading(md []byte) string {
	doc := parser.NewWithExtensions(parser.CommonExtensions).Parse(md)

	var title string
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		heading, ok := node.(*ast.Heading)
		if !ok || !entering || heading.Level != 1 {
			return ast.GoToNext
		}

		var sb strings.Builder
		ast.WalkFunc(heading, func(n ast.Node, entering bool) ast.WalkStatus {
			if leaf := n.AsLeaf(); leaf != nil && entering {
				sb.Write(leaf.Literal)
			}
			return ast.GoToNext
		})
		title = strings.TrimSpace(sb.String())
		return ast.Terminate
	})

	return title
}
