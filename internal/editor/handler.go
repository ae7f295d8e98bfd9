package editor

import (
	"net/http"

	"github.com/debemdeboas/post-editor/internal/config"
	"github.com/debemdeboas/post-editor/internal/model"
	"github.com/debemdeboas/post-editor/internal/routes"
	"github.com/debemdeboas/post-editor/internal/templates"
)

// Handler serves the editor on the create and edit routes.
type Handler struct {
	store PostStore
}

func NewHandler(store PostStore) *Handler {
	return &Handler{store: store}
}

// Register adds the editor routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc(routes.NewPost, h.ServeEditor)
	mux.HandleFunc(routes.EditPost, h.ServeEditor)
}

// requestRouter is the Router of a single request. Navigate answers the
// request with a redirect, or with an Hx-Redirect header for htmx requests.
type requestRouter struct {
	w http.ResponseWriter
	r *http.Request
}

func (rr *requestRouter) Param(name string) (string, bool) {
	v := rr.r.PathValue(name)
	return v, v != ""
}

func (rr *requestRouter) Navigate(path string) {
	if rr.r.Header.Get(config.HHxRequest) != "" {
		rr.w.Header().Set(config.HHxRedirect, path)
		rr.w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(rr.w, rr.r, path, http.StatusSeeOther)
}

func (h *Handler) ServeEditor(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodPost:
	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	router := &requestRouter{w: w, r: r}
	form := NewForm(h.store)

	if err := form.Mount(r.Context(), router); err != nil {
		editorLogger.Error().Err(err).Str("path", r.URL.Path).Msg(config.ErrLoadingPost)
		h.renderError(w, r, http.StatusInternalServerError, config.ErrInternalServerError)
		return
	}

	if !form.EditTargetValid {
		h.renderError(w, r, http.StatusNotFound, config.ErrPostNotFound)
		return
	}

	status := http.StatusOK
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		for _, field := range Fields {
			if values, ok := r.PostForm[string(field)]; ok && len(values) > 0 {
				// Field is one of Fields, so Change cannot fail.
				_ = form.Change(string(field), values[0])
			}
		}

		saved, err := form.Submit(r.Context(), router)
		if err != nil {
			editorLogger.Error().Err(err).Str("path", r.URL.Path).Msg(config.ErrSavingPost)
			h.renderError(w, r, http.StatusInternalServerError, config.ErrInternalServerError)
			return
		}
		if saved {
			return
		}
		status = http.StatusUnprocessableEntity
		if r.Header.Get(config.HHxRequest) != "" {
			// htmx does not swap error responses.
			status = http.StatusOK
		}
	}

	h.renderForm(w, r, status, form)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, form *Form) {
	title := "New post"
	action := routes.NewPost
	if _, ok := routeParam(&requestRouter{w: w, r: r}); ok {
		title = "Edit post"
		action = r.URL.Path
	}

	data := struct {
		*model.PageData
		Form   *Form
		Action string
	}{
		PageData: model.NewPageData(r, title),
		Form:     form,
		Action:   action,
	}

	if err := templates.Render(w, status, config.TemplateEditor, data); err != nil {
		editorLogger.Error().Err(err).Msg(config.ErrRenderTemplate)
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
	}
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if err := templates.RenderError(w, r, status, message); err != nil {
		editorLogger.Error().Err(err).Msg(config.ErrRenderTemplate)
		http.Error(w, message, status)
	}
}
