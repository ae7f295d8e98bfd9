package config

const (
	//? These names must match the files embedded by the templates package

	TemplateLayout = "layout.html"
	TemplateIndex  = "index.html"
	TemplatePost   = "post.html"
	TemplateEditor = "editor.html"
	TemplateError  = "error.html"
)
