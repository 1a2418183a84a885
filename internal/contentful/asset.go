package contentful

// DefaultLocale is the locale under which asset files are read.
const DefaultLocale = "en-US"

// Link is a Contentful sys link ({"sys":{"id":...,"linkType":...}}).
type Link struct {
	Sys struct {
		ID       string `json:"id"`
		LinkType string `json:"linkType,omitempty"`
	} `json:"sys"`
}

// Sys is the system metadata block of a Contentful resource.
type Sys struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Version     int    `json:"version,omitempty"`
	Space       *Link  `json:"space,omitempty"`
	Environment *Link  `json:"environment,omitempty"`
}

// Asset is a Contentful asset as returned by the Content Management API.
// Only the fields the pipeline reads are modelled.
type Asset struct {
	Sys    Sys         `json:"sys"`
	Fields AssetFields `json:"fields"`
}

// AssetFields holds the localized fields of an asset.
type AssetFields struct {
	Title map[string]string `json:"title,omitempty"`
	File  map[string]File   `json:"file,omitempty"`
}

// File is the localized binary reference of an asset. URL stays empty until
// Contentful has finished processing the upload.
type File struct {
	URL         string       `json:"url,omitempty"`
	FileName    string       `json:"fileName,omitempty"`
	ContentType string       `json:"contentType,omitempty"`
	Upload      string       `json:"upload,omitempty"`
	Details     *FileDetails `json:"details,omitempty"`
}

// FileDetails carries the processed file size and image dimensions.
type FileDetails struct {
	Size  int64 `json:"size"`
	Image *struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"image,omitempty"`
}

// AssetPage is one page of a collection response.
type AssetPage struct {
	Items []Asset `json:"items"`
	Total int     `json:"total"`
	Skip  int     `json:"skip"`
	Limit int     `json:"limit"`
}

// ID returns the asset identifier.
func (a *Asset) ID() string {
	return a.Sys.ID
}

func (a *Asset) file(locale string) (File, bool) {
	if a == nil || a.Fields.File == nil {
		return File{}, false
	}
	if locale == "" {
		locale = DefaultLocale
	}
	f, ok := a.Fields.File[locale]
	return f, ok
}

// FileURL returns fields.file[locale].url, or "" if the asset has no
// processed binary for that locale. Contentful URLs are protocol-relative.
func (a *Asset) FileURL(locale string) string {
	f, _ := a.file(locale)
	return f.URL
}

// FileSize returns the processed file size in bytes, or 0 when unknown.
func (a *Asset) FileSize(locale string) int64 {
	f, _ := a.file(locale)
	if f.Details == nil {
		return 0
	}
	return f.Details.Size
}

// ContentType returns the MIME type Contentful recorded for the file.
func (a *Asset) ContentType(locale string) string {
	f, _ := a.file(locale)
	return f.ContentType
}
