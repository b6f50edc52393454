package index

// Index name suffixes under the configured prefix.
const (
	blogsSuffix      = "blogs"
	articlesSuffix   = "articles"
	flisSuffix       = "flis"
	crawlSkipsSuffix = "crawl-skips"
	metaSuffix       = "meta"
)

func keywordField() map[string]any { return map[string]any{"type": "keyword"} }
func dateField() map[string]any    { return map[string]any{"type": "date"} }
func intField() map[string]any     { return map[string]any{"type": "integer"} }
func floatField() map[string]any   { return map[string]any{"type": "float"} }
func boolField() map[string]any    { return map[string]any{"type": "boolean"} }

// textField is stored but not analyzed for relevance; ranking never uses
// full-text scoring.
func textField() map[string]any {
	return map[string]any{"type": "text", "index": false}
}

func indexBody(properties map[string]any) map[string]any {
	return map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 1,
		},
		"mappings": map[string]any{
			"properties": properties,
		},
	}
}

// blogsMapping maps the blog collection. Identity field is source_url.
func blogsMapping() map[string]any {
	return indexBody(map[string]any{
		"title":                 textField(),
		"author":                keywordField(),
		"source_name":           keywordField(),
		"source_url":            keywordField(),
		"publication_datetime":  dateField(),
		"last_updated_datetime": dateField(),
		"rating":                floatField(),
		"rating_count":          intField(),
		"tags":                  keywordField(),
		"catchphrase":           textField(),
		"introduction":          textField(),
		"article_count":         intField(),
		"total_char_count":      intField(),
		"comment_count":         intField(),
		"follower_count":        intField(),
		"in_serialization":      boolField(),
		"last_crawled_datetime": dateField(),
	})
}

// articlesMapping maps the article collection. text_hash, source_url, and
// blog_id are the lookup keys the write path depends on.
func articlesMapping() map[string]any {
	return indexBody(map[string]any{
		"title":                          textField(),
		"author":                         keywordField(),
		"source_url":                     keywordField(),
		"source_name":                    keywordField(),
		"blog_id":                        keywordField(),
		"blog_article_order_num":         intField(),
		"blog_section_name":              keywordField(),
		"blog_section_order_num":         intField(),
		"blog_section_article_order_num": intField(),
		"publication_datetime":           dateField(),
		"last_updated_datetime":          dateField(),
		"last_crawled_datetime":          dateField(),
		"full_text":                      textField(),
		"text_hash":                      keywordField(),
		"alnum_count":                    intField(),
		"has_video":                      boolField(),
		"tags":                           keywordField(),
		"quality_score":                  intField(),
	})
}

// flisMapping maps the found-lexical-item collection. The per-query-type
// base-form fields plus the matching composite score and the denormalized
// article fields form the covering sort for search.
func flisMapping() map[string]any {
	return indexBody(map[string]any{
		"base_form":                 keywordField(),
		"base_form_definite_group":  keywordField(),
		"base_form_possible_group":  keywordField(),
		"article_id":                keywordField(),
		"found_positions":           positionMapping(),
		"possible_interps":          interpMapping(),
		"interp_position_map":       map[string]any{"type": "object", "enabled": false},
		"quality_score_mod":         intField(),
		"article_quality_score":     intField(),
		"article_last_updated_datetime": dateField(),
		"quality_score_exact":       intField(),
		"quality_score_definite":    intField(),
		"quality_score_possible":    intField(),
	})
}

func positionMapping() map[string]any {
	return map[string]any{
		"properties": map[string]any{
			"start": intField(),
			"len":   intField(),
		},
	}
}

func interpMapping() map[string]any {
	return map[string]any{
		"properties": map[string]any{
			"sources":         keywordField(),
			"parts_of_speech": keywordField(),
			"conjugated_type": keywordField(),
			"conjugated_form": keywordField(),
			"jmdict_entry_id": keywordField(),
		},
	}
}

// crawlSkipsMapping maps the crawl skip collection.
func crawlSkipsMapping() map[string]any {
	return indexBody(map[string]any{
		"source_url":            keywordField(),
		"source_name":           keywordField(),
		"last_crawled_datetime": dateField(),
	})
}

// metaMapping maps the process metadata collection (last rescore time).
func metaMapping() map[string]any {
	return indexBody(map[string]any{
		"key":      keywordField(),
		"datetime": dateField(),
	})
}
