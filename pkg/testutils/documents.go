package testutils

import (
	"github.com/fanfiq/fanfiq/pkg/canonical"
)

// Document returns the smallest document that passes validation.
func Document(site, siteWorkID string) *canonical.Document {
	return &canonical.Document{
		SourceSite: canonical.String(site),
		SiteWorkID: canonical.String(siteWorkID),
		Title:      canonical.String("Work " + siteWorkID),
		AuthorName: canonical.String("author"),
	}
}
