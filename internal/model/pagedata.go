package model

import (
	"net/http"

	"github.com/debemdeboas/post-editor/internal/config"
)

type PageData struct {
	SiteName    string
	SiteTagline string

	PageURL   string
	PageTitle string
}

func NewPageData(r *http.Request, title string) *PageData {
	pd := &PageData{
		PageURL:   r.URL.Path,
		PageTitle: title,
	}
	if config.AppConfig != nil {
		pd.SiteName = config.AppConfig.Site.Name
		pd.SiteTagline = config.AppConfig.Site.Tagline
	}
	return pd
}

// Title is the text used in the document <title>.
func (pd *PageData) Title() string {
	if pd.PageTitle == "" {
		return pd.SiteName
	}
	if pd.SiteName == "" {
		return pd.PageTitle
	}
	return pd.PageTitle + " - " + pd.SiteName
}
