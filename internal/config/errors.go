package config

const (
	// Storage errors
	ErrInitializingPosts = "Error initializing posts"
	ErrLoadingPost       = "Error loading post"
	ErrSavingPost        = "Error saving post"

	// Page errors
	ErrPostNotFound        = "Post not found"
	ErrInternalServerError = "Internal server error"
	ErrRenderTemplate      = "Error rendering template"
)
