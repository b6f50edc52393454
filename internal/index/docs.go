package index

import (
	"strconv"
	"time"

	"github.com/myaku-dev/myaku/internal/models"
)

// Document representations of the model types. Optional datetimes are nil
// pointers so absent values stay absent in the store.

type blogDoc struct {
	Title           string     `json:"title,omitempty"`
	Author          string     `json:"author,omitempty"`
	SourceName      string     `json:"source_name"`
	SourceURL       string     `json:"source_url"`
	PublicationDT   *time.Time `json:"publication_datetime,omitempty"`
	LastUpdatedDT   *time.Time `json:"last_updated_datetime,omitempty"`
	Rating          *float64   `json:"rating,omitempty"`
	RatingCount     *int       `json:"rating_count,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	Catchphrase     string     `json:"catchphrase,omitempty"`
	Introduction    string     `json:"introduction,omitempty"`
	ArticleCount    *int       `json:"article_count,omitempty"`
	TotalCharCount  *int       `json:"total_char_count,omitempty"`
	CommentCount    *int       `json:"comment_count,omitempty"`
	FollowerCount   *int       `json:"follower_count,omitempty"`
	InSerialization *bool      `json:"in_serialization,omitempty"`
	LastCrawledDT   *time.Time `json:"last_crawled_datetime,omitempty"`
}

type articleDoc struct {
	Title                      string     `json:"title,omitempty"`
	Author                     string     `json:"author,omitempty"`
	SourceURL                  string     `json:"source_url"`
	SourceName                 string     `json:"source_name"`
	BlogID                     string     `json:"blog_id,omitempty"`
	BlogArticleOrderNum        *int       `json:"blog_article_order_num,omitempty"`
	BlogSectionName            string     `json:"blog_section_name,omitempty"`
	BlogSectionOrderNum        *int       `json:"blog_section_order_num,omitempty"`
	BlogSectionArticleOrderNum *int       `json:"blog_section_article_order_num,omitempty"`
	PublicationDT              *time.Time `json:"publication_datetime,omitempty"`
	LastUpdatedDT              *time.Time `json:"last_updated_datetime,omitempty"`
	LastCrawledDT              *time.Time `json:"last_crawled_datetime,omitempty"`
	FullText                   string     `json:"full_text"`
	TextHash                   string     `json:"text_hash"`
	AlnumCount                 int        `json:"alnum_count"`
	HasVideo                   bool       `json:"has_video"`
	Tags                       []string   `json:"tags,omitempty"`
	QualityScore               int        `json:"quality_score"`
}

type positionDoc struct {
	Start int `json:"start"`
	Len   int `json:"len"`
}

type interpDoc struct {
	Sources        []string `json:"sources"`
	PartsOfSpeech  []string `json:"parts_of_speech,omitempty"`
	ConjugatedType string   `json:"conjugated_type,omitempty"`
	ConjugatedForm string   `json:"conjugated_form,omitempty"`
	JmdictEntryID  string   `json:"jmdict_entry_id,omitempty"`
}

type fliDoc struct {
	BaseForm              string                   `json:"base_form"`
	BaseFormDefiniteGroup string                   `json:"base_form_definite_group"`
	BaseFormPossibleGroup string                   `json:"base_form_possible_group"`
	ArticleID             string                   `json:"article_id"`
	FoundPositions        []positionDoc            `json:"found_positions"`
	PossibleInterps       []interpDoc              `json:"possible_interps"`
	InterpPositionMap     map[string][]positionDoc `json:"interp_position_map,omitempty"`
	QualityScoreMod       int                      `json:"quality_score_mod"`
	ArticleQualityScore   int                      `json:"article_quality_score"`
	ArticleLastUpdatedDT  *time.Time               `json:"article_last_updated_datetime,omitempty"`
	QualityScoreExact     int                      `json:"quality_score_exact"`
	QualityScoreDefinite  int                      `json:"quality_score_definite"`
	QualityScorePossible  int                      `json:"quality_score_possible"`
}

type crawlSkipDoc struct {
	SourceURL     string     `json:"source_url"`
	SourceName    string     `json:"source_name"`
	LastCrawledDT *time.Time `json:"last_crawled_datetime,omitempty"`
}

type metaDoc struct {
	Key      string     `json:"key"`
	Datetime *time.Time `json:"datetime,omitempty"`
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func timeVal(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func blogToDoc(b *models.Blog) blogDoc {
	return blogDoc{
		Title:           b.Title,
		Author:          b.Author,
		SourceName:      b.SourceName,
		SourceURL:       b.SourceURL,
		PublicationDT:   timePtr(b.PublicationDT),
		LastUpdatedDT:   timePtr(b.LastUpdatedDT),
		Rating:          b.Rating,
		RatingCount:     b.RatingCount,
		Tags:            b.Tags,
		Catchphrase:     b.Catchphrase,
		Introduction:    b.Introduction,
		ArticleCount:    b.ArticleCount,
		TotalCharCount:  b.TotalCharCount,
		CommentCount:    b.CommentCount,
		FollowerCount:   b.FollowerCount,
		InSerialization: b.InSerialization,
		LastCrawledDT:   timePtr(b.LastCrawledDT),
	}
}

func docToBlog(id string, d blogDoc) *models.Blog {
	return &models.Blog{
		ID:              id,
		Title:           d.Title,
		Author:          d.Author,
		SourceName:      d.SourceName,
		SourceURL:       d.SourceURL,
		PublicationDT:   timeVal(d.PublicationDT),
		LastUpdatedDT:   timeVal(d.LastUpdatedDT),
		Rating:          d.Rating,
		RatingCount:     d.RatingCount,
		Tags:            d.Tags,
		Catchphrase:     d.Catchphrase,
		Introduction:    d.Introduction,
		ArticleCount:    d.ArticleCount,
		TotalCharCount:  d.TotalCharCount,
		CommentCount:    d.CommentCount,
		FollowerCount:   d.FollowerCount,
		InSerialization: d.InSerialization,
		LastCrawledDT:   timeVal(d.LastCrawledDT),
	}
}

func articleToDoc(a *models.Article, blogID string) articleDoc {
	return articleDoc{
		Title:                      a.Title,
		Author:                     a.Author,
		SourceURL:                  a.SourceURL,
		SourceName:                 a.SourceName,
		BlogID:                     blogID,
		BlogArticleOrderNum:        a.BlogArticleOrderNum,
		BlogSectionName:            a.BlogSectionName,
		BlogSectionOrderNum:        a.BlogSectionOrderNum,
		BlogSectionArticleOrderNum: a.BlogSectionArticleOrderNum,
		PublicationDT:              timePtr(a.PublicationDT),
		LastUpdatedDT:              timePtr(a.LastUpdatedDT),
		LastCrawledDT:              timePtr(a.LastCrawledDT),
		FullText:                   a.FullText,
		TextHash:                   a.TextHash,
		AlnumCount:                 a.AlnumCount,
		HasVideo:                   a.HasVideo,
		Tags:                       a.Tags,
		QualityScore:               a.QualityScore,
	}
}

func docToArticle(id string, d articleDoc) *models.Article {
	return &models.Article{
		ID:                         id,
		Title:                      d.Title,
		Author:                     d.Author,
		SourceURL:                  d.SourceURL,
		SourceName:                 d.SourceName,
		BlogArticleOrderNum:        d.BlogArticleOrderNum,
		BlogSectionName:            d.BlogSectionName,
		BlogSectionOrderNum:        d.BlogSectionOrderNum,
		BlogSectionArticleOrderNum: d.BlogSectionArticleOrderNum,
		PublicationDT:              timeVal(d.PublicationDT),
		LastUpdatedDT:              timeVal(d.LastUpdatedDT),
		LastCrawledDT:              timeVal(d.LastCrawledDT),
		FullText:                   d.FullText,
		TextHash:                   d.TextHash,
		AlnumCount:                 d.AlnumCount,
		HasVideo:                   d.HasVideo,
		Tags:                       d.Tags,
		QualityScore:               d.QualityScore,
	}
}

func positionsToDoc(positions []models.Position) []positionDoc {
	docs := make([]positionDoc, len(positions))
	for i, p := range positions {
		docs[i] = positionDoc{Start: p.Start, Len: p.Len}
	}
	return docs
}

func docToPositions(docs []positionDoc) []models.Position {
	positions := make([]models.Position, len(docs))
	for i, d := range docs {
		positions[i] = models.Position{Start: d.Start, Len: d.Len}
	}
	return positions
}

func fliToDoc(f *models.FoundLexicalItem) fliDoc {
	doc := fliDoc{
		BaseForm: f.BaseForm,
		// Alternate-form grouping is not implemented; the group fields
		// mirror the base form so the schema already accommodates it.
		BaseFormDefiniteGroup: f.BaseForm,
		BaseFormPossibleGroup: f.BaseForm,
		ArticleID:             f.ArticleID,
		FoundPositions:        positionsToDoc(f.FoundPositions),
		QualityScoreMod:       f.QualityScoreMod,
		ArticleQualityScore:   f.ArticleQualityScore,
		ArticleLastUpdatedDT:  timePtr(f.ArticleLastUpdated),
		QualityScoreExact:     f.QualityScoreExact,
		QualityScoreDefinite:  f.QualityScoreDefinite,
		QualityScorePossible:  f.QualityScorePossible,
	}

	doc.PossibleInterps = make([]interpDoc, len(f.PossibleInterps))
	for i, interp := range f.PossibleInterps {
		sources := make([]string, len(interp.Sources))
		for j, s := range interp.Sources {
			sources[j] = string(s)
		}
		d := interpDoc{Sources: sources, JmdictEntryID: interp.JmdictEntryID}
		if interp.MecabTags != nil {
			d.PartsOfSpeech = interp.MecabTags.PartsOfSpeech
			d.ConjugatedType = interp.MecabTags.ConjugatedType
			d.ConjugatedForm = interp.MecabTags.ConjugatedForm
		}
		doc.PossibleInterps[i] = d
	}

	if len(f.InterpPositionMap) > 0 {
		doc.InterpPositionMap = make(map[string][]positionDoc, len(f.InterpPositionMap))
		for idx, positions := range f.InterpPositionMap {
			doc.InterpPositionMap[strconv.Itoa(idx)] = positionsToDoc(positions)
		}
	}

	return doc
}

func docToFLI(id string, d fliDoc) *models.FoundLexicalItem {
	fli := &models.FoundLexicalItem{
		ID:                   id,
		BaseForm:             d.BaseForm,
		ArticleID:            d.ArticleID,
		FoundPositions:       docToPositions(d.FoundPositions),
		QualityScoreMod:      d.QualityScoreMod,
		ArticleQualityScore:  d.ArticleQualityScore,
		ArticleLastUpdated:   timeVal(d.ArticleLastUpdatedDT),
		QualityScoreExact:    d.QualityScoreExact,
		QualityScoreDefinite: d.QualityScoreDefinite,
		QualityScorePossible: d.QualityScorePossible,
	}

	fli.PossibleInterps = make([]models.LexicalItemInterp, len(d.PossibleInterps))
	for i, interp := range d.PossibleInterps {
		sources := make([]models.InterpSource, len(interp.Sources))
		for j, s := range interp.Sources {
			sources[j] = models.InterpSource(s)
		}
		m := models.LexicalItemInterp{Sources: sources, JmdictEntryID: interp.JmdictEntryID}
		if len(interp.PartsOfSpeech) > 0 || interp.ConjugatedType != "" || interp.ConjugatedForm != "" {
			m.MecabTags = &models.MecabTags{
				PartsOfSpeech:  interp.PartsOfSpeech,
				ConjugatedType: interp.ConjugatedType,
				ConjugatedForm: interp.ConjugatedForm,
			}
		}
		fli.PossibleInterps[i] = m
	}

	if len(d.InterpPositionMap) > 0 {
		fli.InterpPositionMap = make(map[int][]models.Position, len(d.InterpPositionMap))
		for key, positions := range d.InterpPositionMap {
			idx, err := strconv.Atoi(key)
			if err != nil {
				continue
			}
			fli.InterpPositionMap[idx] = docToPositions(positions)
		}
	}

	return fli
}
