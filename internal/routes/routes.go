// Package routes defines HTTP route constants for the application.
package routes

const (
	RobotsPath = "/robots.txt"

	// SSE
	SSEPath = "/sse"

	// Pages
	RootPath = "/"
	PostPath = "/post/{id}"

	// Editor routes
	NewPost  = "/new/post"
	EditPost = "/edit/post/{id}"

	// IDParam is the path wildcard carrying a post id.
	IDParam = "id"
)

// EditPostPath returns the editor URL for an existing post.
func EditPostPath(id string) string {
	return "/edit/post/" + id
}
