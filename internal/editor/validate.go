package editor

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/debemdeboas/post-editor/internal/model"
)

// Whitespace and line terminators as recognised by browsers in \s and
// String.prototype.trim. Go's \s only covers ASCII.
const jsSpace = `\t\n\x{0b}\f\r \x{00a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}`

// Any character except a line terminator.
const jsDot = `[^\n\r\x{2028}\x{2029}]`

// Browsers match this pattern over UTF-16 code units, so a character outside
// the BMP counts as two: on its own it fills both leading host positions.
const jsAstral = `[\x{10000}-\x{10FFFF}]`

// Case is ignored for ASCII letters only. Go's (?i) would also fold
// U+017F into s and U+212A into k.
const imgURLScheme = `(?:[hH][tT][tT][pP][sS]?|[fF][tT][pP])`

// imgURLPattern is a loose shape check, not a URI parser: a scheme, "://",
// one character that cannot start a host, one more character and then no
// whitespace until the end.
var imgURLPattern = regexp.MustCompile(`^` + imgURLScheme + `://` +
	`(?:` + jsAstral + `|[^` + jsSpace + `/$.?#]` + jsDot + `)` +
	`[^` + jsSpace + `]*$`)

func isJSSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ',
		'\u00a0', '\u1680', '\u2028', '\u2029', '\u202f', '\u205f', '\u3000', '\ufeff':
		return true
	}
	return r >= '\u2000' && r <= '\u200a'
}

func trim(s string) string {
	return strings.TrimFunc(s, isJSSpace)
}

// IsValidImgURL reports whether s, once trimmed, has the accepted image URL
// shape. Blank values are accepted since the field is optional.
func IsValidImgURL(s string) bool {
	s = trim(s)
	if s == "" {
		return true
	}
	return imgURLPattern.MatchString(s)
}

// postInput mirrors the editable fields. The form tag is the field name
// reported back in FieldErrors.
type postInput struct {
	Title   string `form:"title" validate:"notblank"`
	Content string `form:"content" validate:"notblank"`
	ImgURL  string `form:"imgUrl" validate:"imgurl"`
}

var messages = map[Field]string{
	FieldTitle:   "Title is required",
	FieldContent: "Content is required",
	FieldImgURL:  "Invalid URL format",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})

	// Registration only fails for an empty tag or a nil function.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return trim(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("imgurl", func(fl validator.FieldLevel) bool {
		return IsValidImgURL(fl.Field().String())
	})

	return v
}

// Validate checks every editable field of post and returns one message per
// failing field. It never modifies post and never stops at the first failure.
func Validate(post model.Post) FieldErrors {
	errs := FieldErrors{}

	err := validate.Struct(postInput{
		Title:   post.Title,
		Content: post.Content,
		ImgURL:  post.ImgURL,
	})
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// Only returned for invalid arguments to Struct, which postInput never is.
		editorLogger.Error().Err(err).Msg("Unexpected validation failure")
		return errs
	}

	for _, fe := range verrs {
		field := Field(fe.Field())
		if msg, ok := messages[field]; ok {
			errs[field] = msg
		}
	}
	return errs
}
