// Package editor implements the post editor form: loading the edit target,
// applying field changes, validating and saving through a PostStore.
package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/post-editor/internal/model"
	"github.com/debemdeboas/post-editor/internal/repository"
	"github.com/debemdeboas/post-editor/internal/routes"
)

var editorLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	editorLogger = l
}

// Field names an editable form field.
type Field string

const (
	FieldTitle   Field = "title"
	FieldContent Field = "content"
	FieldImgURL  Field = "imgUrl"
)

// Fields lists the editable fields in display order.
var Fields = []Field{FieldTitle, FieldContent, FieldImgURL}

// FieldErrors maps a failing field to its message. Fields without an entry are valid.
type FieldErrors map[Field]string

// Message returns the message for the named field, or "".
func (e FieldErrors) Message(field string) string {
	return e[Field(field)]
}

var ErrUnknownField = errors.New("unknown field")

// PostStore is the storage the form reads the edit target from and saves to.
type PostStore interface {
	// GetPost returns repository.ErrPostNotFound when no post has the id.
	GetPost(ctx context.Context, id model.PostID) (*model.Post, error)
	// AddPost assigns a fresh id and writes it into post.
	AddPost(ctx context.Context, post *model.Post) error
	EditPost(ctx context.Context, post *model.Post) error
}

// Router gives the form access to the route it is shown on.
type Router interface {
	Param(name string) (string, bool)
	Navigate(path string)
}

// Form is the state of one editor view.
type Form struct {
	Draft  model.Post
	Errors FieldErrors

	// EditTargetValid is false when the route names a post that could not be found.
	EditTargetValid bool

	store PostStore

	mounted  bool
	routeID  string
	hasRoute bool
}

func NewForm(store PostStore) *Form {
	return &Form{
		Draft:           model.NewDraft(),
		Errors:          FieldErrors{},
		EditTargetValid: true,
		store:           store,
	}
}

func routeParam(router Router) (string, bool) {
	id, ok := router.Param(routes.IDParam)
	return id, ok && id != ""
}

// Mount loads the edit target named by the route. It only does work when the
// route identifier differs from the one seen by the previous call.
func (f *Form) Mount(ctx context.Context, router Router) error {
	raw, ok := routeParam(router)
	if f.mounted && raw == f.routeID && ok == f.hasRoute {
		return nil
	}
	remount := f.mounted
	f.mounted, f.routeID, f.hasRoute = true, raw, ok

	if !ok {
		// Create mode starts from the skeleton draft.
		if remount {
			f.Draft = model.NewDraft()
		}
		f.EditTargetValid = true
		return nil
	}

	id, err := model.ParseLeadingPostID(raw)
	if err != nil {
		editorLogger.Debug().Str("id", raw).Msg("Edit target is not a post id")
		f.EditTargetValid = false
		return nil
	}

	post, err := f.store.GetPost(ctx, id)
	if errors.Is(err, repository.ErrPostNotFound) {
		editorLogger.Debug().Int64("post_id", int64(id)).Msg("Edit target not found")
		f.EditTargetValid = false
		return nil
	} else if err != nil {
		return fmt.Errorf("error loading post %d: %w", id, err)
	}

	f.Draft = *post
	f.EditTargetValid = true
	return nil
}

// Change sets one field of the draft. Nothing is validated until Submit.
func (f *Form) Change(field string, value string) error {
	switch Field(field) {
	case FieldTitle:
		f.Draft.Title = value
	case FieldContent:
		f.Draft.Content = value
	case FieldImgURL:
		f.Draft.ImgURL = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// Submit validates the draft and, when it is valid, creates or updates the
// post and navigates to its detail page. It reports whether the post was saved.
// Errors are always replaced with the result of this validation.
func (f *Form) Submit(ctx context.Context, router Router) (bool, error) {
	f.Errors = Validate(f.Draft)
	if len(f.Errors) > 0 {
		editorLogger.Debug().Int("errors", len(f.Errors)).Msg("Draft rejected")
		return false, nil
	}
	f.Errors = FieldErrors{}

	if _, ok := routeParam(router); !ok {
		if err := f.store.AddPost(ctx, &f.Draft); err != nil {
			return false, fmt.Errorf("error creating post: %w", err)
		}
		editorLogger.Info().Int64("post_id", int64(f.Draft.ID)).Msg("Post created")
	} else {
		if err := f.store.EditPost(ctx, &f.Draft); err != nil {
			return false, fmt.Errorf("error updating post %d: %w", f.Draft.ID, err)
		}
		editorLogger.Info().Int64("post_id", int64(f.Draft.ID)).Msg("Post updated")
	}

	router.Navigate(f.Draft.DetailPath())
	return true, nil
}

// BackPath is where the back link leads: the post itself when it exists,
// the listing otherwise.
func (f *Form) BackPath() string {
	if f.Draft.ID != 0 {
		return f.Draft.DetailPath()
	}
	return routes.RootPath
}
