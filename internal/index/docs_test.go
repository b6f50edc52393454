package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myaku-dev/myaku/internal/models"
)

func TestQueryFieldPerType(t *testing.T) {
	assert.Equal(t, "base_form", queryField(models.QueryTypeExact))
	assert.Equal(t, "base_form_definite_group", queryField(models.QueryTypeDefinite))
	assert.Equal(t, "base_form_possible_group", queryField(models.QueryTypePossible))

	assert.Equal(t, "quality_score_exact", scoreField(models.QueryTypeExact))
	assert.Equal(t, "quality_score_definite", scoreField(models.QueryTypeDefinite))
	assert.Equal(t, "quality_score_possible", scoreField(models.QueryTypePossible))
}

func TestFLIDocGroupFieldsMirrorBaseForm(t *testing.T) {
	fli := &models.FoundLexicalItem{BaseForm: "食べる", ArticleID: "a1"}
	doc := fliToDoc(fli)

	assert.Equal(t, "食べる", doc.BaseForm)
	assert.Equal(t, "食べる", doc.BaseFormDefiniteGroup)
	assert.Equal(t, "食べる", doc.BaseFormPossibleGroup)
}

func TestFLIDocInterpPositionMapKeying(t *testing.T) {
	fli := &models.FoundLexicalItem{
		BaseForm:  "行く",
		ArticleID: "a1",
		FoundPositions: []models.Position{
			{Start: 0, Len: 2}, {Start: 10, Len: 2},
		},
		PossibleInterps: []models.LexicalItemInterp{
			{Sources: []models.InterpSource{models.InterpSourceMecab}},
			{Sources: []models.InterpSource{models.InterpSourceJmdictBaseForm}},
		},
		InterpPositionMap: map[int][]models.Position{
			1: {{Start: 10, Len: 2}},
		},
	}

	doc := fliToDoc(fli)
	require.Len(t, doc.InterpPositionMap, 1)
	require.Contains(t, doc.InterpPositionMap, "1")
	assert.Equal(t, []positionDoc{{Start: 10, Len: 2}}, doc.InterpPositionMap["1"])

	back := docToFLI("id1", doc)
	require.Len(t, back.InterpPositionMap, 1)
	assert.Equal(t, fli.InterpPositionMap[1], back.InterpPositionMap[1])
	assert.Equal(t, fli.FoundPositions, back.FoundPositions)
	require.Len(t, back.PossibleInterps, 2)
	assert.True(t, back.PossibleInterps[0].Equal(fli.PossibleInterps[0]))
	assert.Nil(t, back.PossibleInterps[0].MecabTags)
}

func TestOptionalDatetimesStayAbsent(t *testing.T) {
	blog := &models.Blog{SourceName: "NHK", SourceURL: "https://example.com/blog"}
	doc := blogToDoc(blog)

	assert.Nil(t, doc.PublicationDT)
	assert.Nil(t, doc.LastUpdatedDT)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	blog.LastUpdatedDT = now
	assert.Equal(t, now, timeVal(blogToDoc(blog).LastUpdatedDT))

	back := docToBlog("b1", blogToDoc(blog))
	assert.True(t, back.PublicationDT.IsZero())
	assert.Equal(t, now, back.LastUpdatedDT)
}

func TestMappingsCoverSortAndLookupFields(t *testing.T) {
	props := flisMapping()["mappings"].(map[string]any)["properties"].(map[string]any)
	for _, field := range []string{
		"base_form", "base_form_definite_group", "base_form_possible_group",
		"article_id", "quality_score_exact", "quality_score_definite",
		"quality_score_possible", "article_last_updated_datetime",
	} {
		assert.Contains(t, props, field)
	}

	articleProps := articlesMapping()["mappings"].(map[string]any)["properties"].(map[string]any)
	for _, field := range []string{"source_url", "text_hash", "last_updated_datetime", "quality_score"} {
		assert.Contains(t, articleProps, field)
	}
}
