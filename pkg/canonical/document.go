package canonical

import (
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

const (
	KeySourceSite    = "source_site"
	KeySiteWorkID    = "site_work_id"
	KeyID            = "id"
	KeyOriginalURL   = "original_url"
	KeyTitle         = "title"
	KeyAuthorName    = "author_name"
	KeyAuthorURL     = "author_url"
	KeySummary       = "summary"
	KeyLanguage      = "language"
	KeyRating        = "rating"
	KeyCategory      = "category"
	KeyStatus        = "status"
	KeyWordCount     = "word_count"
	KeyLikesCount    = "likes_count"
	KeyCommentsCount = "comments_count"
	KeyPublishedAt   = "published_at"
	KeyUpdatedAt     = "updated_at"
	KeyFandoms       = "fandoms"
	KeyTags          = "tags"
	KeyWarnings      = "warnings"
	KeyChapters      = "chapters"
)

// Document is the record a site adapter emits for one work. Every scalar is a
// Field so that omitted and null values stay distinguishable until Normalize.
type Document struct {
	SourceSite    Field
	SiteWorkID    Field
	OriginalURL   Field
	Title         Field
	AuthorName    Field
	AuthorURL     Field
	Summary       Field
	Language      Field
	Rating        Field
	Category      Field
	Status        Field
	WordCount     Field
	LikesCount    Field
	CommentsCount Field
	PublishedAt   Field
	UpdatedAt     Field

	Fandoms  []string
	Tags     []string
	Warnings []string
	Chapters []ChapterDocument
}

type ChapterDocument struct {
	ChapterNumber Field
	Title         Field
	Content       Field
}

func (d *Document) fields() map[string]*Field {
	return map[string]*Field{
		KeySourceSite:    &d.SourceSite,
		KeySiteWorkID:    &d.SiteWorkID,
		KeyOriginalURL:   &d.OriginalURL,
		KeyTitle:         &d.Title,
		KeyAuthorName:    &d.AuthorName,
		KeyAuthorURL:     &d.AuthorURL,
		KeySummary:       &d.Summary,
		KeyLanguage:      &d.Language,
		KeyRating:        &d.Rating,
		KeyCategory:      &d.Category,
		KeyStatus:        &d.Status,
		KeyWordCount:     &d.WordCount,
		KeyLikesCount:    &d.LikesCount,
		KeyCommentsCount: &d.CommentsCount,
		KeyPublishedAt:   &d.PublishedAt,
		KeyUpdatedAt:     &d.UpdatedAt,
	}
}

// UnmarshalJSON decodes an adapter payload. Unknown keys are ignored and "id"
// is accepted as an alias of "site_work_id".
func (d *Document) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return errors.WithStack(err)
	}

	*d = Document{}
	for key, field := range d.fields() {
		if v, ok := raw[key]; ok {
			*field = Field{Set: true, Raw: v}
		}
	}
	if !d.SiteWorkID.Set {
		if v, ok := raw[KeyID]; ok {
			d.SiteWorkID = Field{Set: true, Raw: v}
		}
	}

	var err error
	if d.Fandoms, err = decodeStrings(KeyFandoms, raw[KeyFandoms]); err != nil {
		return err
	}
	if d.Tags, err = decodeStrings(KeyTags, raw[KeyTags]); err != nil {
		return err
	}
	if d.Warnings, err = decodeStrings(KeyWarnings, raw[KeyWarnings]); err != nil {
		return err
	}

	if v, ok := raw[KeyChapters]; ok && !(Field{Set: true, Raw: v}).IsNull() {
		var chapters []map[string]json.RawMessage
		if err := json.Unmarshal(v, &chapters); err != nil {
			return &ValidationError{Field: KeyChapters, Reason: "must be a list of objects"}
		}
		d.Chapters = make([]ChapterDocument, 0, len(chapters))
		for _, ch := range chapters {
			cd := ChapterDocument{}
			if n, ok := ch["chapter_number"]; ok {
				cd.ChapterNumber = Field{Set: true, Raw: n}
			}
			if t, ok := ch["title"]; ok {
				cd.Title = Field{Set: true, Raw: t}
			}
			if c, ok := ch["content"]; ok {
				cd.Content = Field{Set: true, Raw: c}
			} else if c, ok := ch["content_html"]; ok {
				cd.Content = Field{Set: true, Raw: c}
			}
			d.Chapters = append(d.Chapters, cd)
		}
	}

	return nil
}

// MarshalJSON writes only the fields that were set, so a document survives a
// round trip through the job queue with omitted fields still omitted.
func (d Document) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{}
	for key, field := range d.fields() {
		if field.Set {
			out[key] = rawOrNull(*field)
		}
	}
	if d.Fandoms != nil {
		out[KeyFandoms] = d.Fandoms
	}
	if d.Tags != nil {
		out[KeyTags] = d.Tags
	}
	if d.Warnings != nil {
		out[KeyWarnings] = d.Warnings
	}
	if d.Chapters != nil {
		chapters := make([]map[string]interface{}, 0, len(d.Chapters))
		for _, ch := range d.Chapters {
			m := map[string]interface{}{}
			if ch.ChapterNumber.Set {
				m["chapter_number"] = rawOrNull(ch.ChapterNumber)
			}
			if ch.Title.Set {
				m["title"] = rawOrNull(ch.Title)
			}
			if ch.Content.Set {
				m["content"] = rawOrNull(ch.Content)
			}
			chapters = append(chapters, m)
		}
		out[KeyChapters] = chapters
	}
	b, err := json.Marshal(out)
	return b, errors.WithStack(err)
}

func rawOrNull(f Field) json.RawMessage {
	if len(f.Raw) == 0 {
		return json.RawMessage("null")
	}
	return f.Raw
}

// decodeStrings reads a list facet. Null or missing yields nil; scalar
// elements that are not strings are kept as their JSON literal.
func decodeStrings(key string, raw json.RawMessage) ([]string, error) {
	if raw == nil || (Field{Set: true, Raw: raw}).IsNull() {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &ValidationError{Field: key, Reason: "must be a list of strings"}
	}
	values := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := (Field{Set: true, Raw: item}).text(); ok {
			values = append(values, s)
		}
	}
	return values, nil
}
