package canonical

import (
	"strconv"
	"strings"
	"time"
)

const (
	DefaultLanguage = "ru"
	DefaultStatus   = "In Progress"
)

// Optional is a normalized nullable value. Set is false when the adapter
// omitted the field, in which case the stored value must be left alone.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

func None[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// Record is a validated document with every default applied.
type Record struct {
	SiteCode   string
	SiteWorkID string
	Title      string
	AuthorName string
	Summary    string
	Language   string
	Rating     string
	Status     string
	WordCount  int
	SearchText string

	AuthorURL     Optional[string]
	Category      Optional[string]
	OriginalURL   Optional[string]
	LikesCount    Optional[int]
	CommentsCount Optional[int]
	PublishedAt   Optional[time.Time]
	UpdatedAt     Optional[time.Time]

	Fandoms  []string
	Tags     []string
	Warnings []string

	// HasChapters is false when the document carried no chapter list at all;
	// stored chapters are then kept as they are.
	HasChapters bool
	Chapters    []Chapter
}

type Chapter struct {
	Number  int
	Title   string
	Content string
}

// Normalize validates doc and applies the default rules. It never touches a
// store, so a rejected document leaves no trace.
func Normalize(doc *Document) (*Record, error) {
	rec := &Record{}

	rec.SiteCode = strings.ToLower(trimmed(doc.SourceSite))
	if rec.SiteCode == "" {
		return nil, &ValidationError{Field: KeySourceSite, Reason: "is required"}
	}

	rec.Title = trimmed(doc.Title)
	if rec.Title == "" {
		return nil, &ValidationError{Field: KeyTitle, Reason: "is required"}
	}

	rec.AuthorName = trimmed(doc.AuthorName)
	if rec.AuthorName == "" {
		return nil, &ValidationError{Field: KeyAuthorName, Reason: "is required"}
	}

	rec.SiteWorkID = trimmed(doc.SiteWorkID)
	if rec.SiteWorkID == "" {
		rec.SiteWorkID = trimmed(doc.OriginalURL)
	}
	if rec.SiteWorkID == "" {
		return nil, &ValidationError{Field: KeySiteWorkID, Reason: "is required when original_url is missing"}
	}

	rec.Summary = trimmed(doc.Summary)
	rec.Rating = trimmed(doc.Rating)

	rec.Language = strings.ToLower(trimmed(doc.Language))
	if rec.Language == "" {
		rec.Language = DefaultLanguage
	}

	rec.Status = trimmed(doc.Status)
	if rec.Status == "" {
		rec.Status = DefaultStatus
	}

	if n, ok := doc.WordCount.integer(); ok && n > 0 {
		rec.WordCount = n
	}

	rec.AuthorURL = optionalText(doc.AuthorURL)
	rec.Category = optionalText(doc.Category)
	rec.OriginalURL = optionalText(doc.OriginalURL)
	rec.LikesCount = optionalCount(doc.LikesCount)
	rec.CommentsCount = optionalCount(doc.CommentsCount)
	rec.PublishedAt = optionalTime(doc.PublishedAt)
	rec.UpdatedAt = optionalTime(doc.UpdatedAt)

	rec.Fandoms = facetSet(doc.Fandoms)
	rec.Tags = facetSet(doc.Tags)
	rec.Warnings = facetSet(doc.Warnings)

	if doc.Chapters != nil {
		chapters, err := normalizeChapters(doc.Chapters)
		if err != nil {
			return nil, err
		}
		rec.HasChapters = true
		rec.Chapters = chapters
	}

	rec.SearchText = SearchText(rec.Title, rec.Summary)

	return rec, nil
}

func trimmed(f Field) string {
	s, _ := f.text()
	return strings.TrimSpace(s)
}

// optionalText treats a present empty string the same as null.
func optionalText(f Field) Optional[string] {
	if !f.Set {
		return Optional[string]{}
	}
	s := trimmed(f)
	if s == "" {
		return None[string]()
	}
	return Some(s)
}

// optionalCount stores unparsable or negative counters as null; the source
// sent something, just nothing usable.
func optionalCount(f Field) Optional[int] {
	if !f.Set {
		return Optional[int]{}
	}
	n, ok := f.integer()
	if !ok || n < 0 {
		return None[int]()
	}
	return Some(n)
}

// optionalTime leaves unparsable timestamps out entirely so a formatting
// change on the source never wipes a known date.
func optionalTime(f Field) Optional[time.Time] {
	if !f.Set {
		return Optional[time.Time]{}
	}
	if f.IsNull() {
		return None[time.Time]()
	}
	t, ok := f.timestamp()
	if !ok {
		return Optional[time.Time]{}
	}
	return Some(t)
}

// facetSet trims, drops empties and removes duplicates, keeping first-seen
// order.
func facetSet(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// normalizeChapters numbers chapters without an explicit positive number by
// their 1-based position.
func normalizeChapters(docs []ChapterDocument) ([]Chapter, error) {
	chapters := make([]Chapter, 0, len(docs))
	seen := make(map[int]struct{}, len(docs))
	for i, cd := range docs {
		number := i + 1
		if n, ok := cd.ChapterNumber.integer(); ok && n > 0 {
			number = n
		}
		if _, ok := seen[number]; ok {
			return nil, &ValidationError{Field: KeyChapters, Reason: "has duplicate chapter_number " + strconv.Itoa(number)}
		}
		seen[number] = struct{}{}

		content, _ := cd.Content.text()
		chapters = append(chapters, Chapter{
			Number:  number,
			Title:   trimmed(cd.Title),
			Content: content,
		})
	}
	return chapters, nil
}
