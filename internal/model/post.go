// Package model defines core data structures and types for the blog application.
package model

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// PostID identifies a stored post. The zero value marks a post that has not
// been created yet.
type PostID int64

func (id PostID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParsePostID parses a route identifier. Surrounding whitespace is ignored.
func ParsePostID(s string) (PostID, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	return PostID(v), nil
}

// ParseLeadingPostID reads the integer at the start of s and ignores whatever
// follows it, so "5abc" and "5.7" both name post 5. Leading whitespace and a
// sign are accepted, and a "0x" prefix switches to hexadecimal. It fails only
// when no digit leads.
func ParseLeadingPostID(s string) (PostID, error) {
	rest := strings.TrimLeftFunc(s, unicode.IsSpace)

	neg := false
	if rest != "" && (rest[0] == '+' || rest[0] == '-') {
		neg = rest[0] == '-'
		rest = rest[1:]
	}

	base := 10
	if len(rest) >= 2 && rest[0] == '0' && (rest[1] == 'x' || rest[1] == 'X') {
		base = 16
		rest = rest[2:]
	}

	end := 0
	for end < len(rest) && isDigit(rest[end], base) {
		end++
	}
	if end == 0 {
		return 0, &strconv.NumError{Func: "ParseLeadingPostID", Num: s, Err: strconv.ErrSyntax}
	}

	v, err := strconv.ParseInt(rest[:end], base, 64)
	if err != nil {
		return 0, err
	}
	if neg {
		v = -v
	}
	return PostID(v), nil
}

func isDigit(c byte, base int) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case base == 16:
		return (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
	}
	return false
}

type Post struct {
	ID PostID

	Title   string
	Content string
	ImgURL  string

	CreatedAt  time.Time
	ModifiedAt time.Time

	// Used for cache busting of the rendered content.
	ContentHash string
}

// NewDraft returns the empty skeleton used by the editor in create mode.
func NewDraft() Post {
	return Post{CreatedAt: time.Now().UTC()}
}

func (p *Post) IsNew() bool {
	return p.ID == 0
}

func (p *Post) DetailPath() string {
	return PostDetailPath(p.ID)
}

func PostDetailPath(id PostID) string {
	return PostsURLPath + id.String()
}

// PostsURLPath prefixes the detail page of every post.
const PostsURLPath = "/post/"
