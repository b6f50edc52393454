// Package cache implements the two-tier search cache on Redis: a
// never-expiring first-page cache and a per-user next-page cache, both
// holding compact binary serializations of result pages.
package cache

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"time"
	"unicode/utf16"

	"github.com/myaku-dev/myaku/internal/models"
)

// Serialization format: one magic byte and one version byte, then a zlib
// (level 1) stream of length-prefixed fields. Japanese text is UTF-16 BE,
// ASCII fields are UTF-8, timestamps are uint32 Unix seconds. Readers
// seeing an unknown magic or version report ErrSerializationMismatch,
// which callers treat as a cache miss.
const (
	codecMagic   = 0x4D
	codecVersion = 1
)

type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) uint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) int32(v int) {
	e.uint32(uint32(int32(v)))
}

func (e *encoder) boolean(v bool) {
	if v {
		e.buf.WriteByte(1)
	} else {
		e.buf.WriteByte(0)
	}
}

// ascii writes a UTF-8 field. Used for IDs, URLs, and labels.
func (e *encoder) ascii(s string) {
	e.uint32(uint32(len(s)))
	e.buf.WriteString(s)
}

// japanese writes a UTF-16 BE field, which is denser than UTF-8 for kana
// and kanji.
func (e *encoder) japanese(s string) {
	units := utf16.Encode([]rune(s))
	e.uint32(uint32(len(units) * 2))
	for _, u := range units {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], u)
		e.buf.Write(b[:])
	}
}

func (e *encoder) timestamp(t time.Time) {
	if t.IsZero() {
		e.uint32(0)
		return
	}
	e.uint32(uint32(t.Unix()))
}

// finish compresses the payload behind the magic/version header.
func (e *encoder) finish() ([]byte, error) {
	var out bytes.Buffer
	out.WriteByte(codecMagic)
	out.WriteByte(codecVersion)

	zw, err := zlib.NewWriterLevel(&out, zlib.BestSpeed)
	if err != nil {
		return nil, fmt.Errorf("init zlib writer: %w", err)
	}
	if _, err := zw.Write(e.buf.Bytes()); err != nil {
		return nil, fmt.Errorf("compress cache payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress cache payload: %w", err)
	}
	return out.Bytes(), nil
}

// preallocLimit caps slice pre-allocation from decoded counts so a corrupt
// length prefix cannot trigger an arbitrarily large allocation before the
// element reads fail.
const preallocLimit = 1024

func capCount(n uint32) int {
	return int(min(n, preallocLimit))
}

type decoder struct {
	r *bytes.Reader
}

func newDecoder(payload []byte) (*decoder, error) {
	if len(payload) < 2 || payload[0] != codecMagic || payload[1] != codecVersion {
		return nil, fmt.Errorf("%w: bad header", models.ErrSerializationMismatch)
	}
	zr, err := zlib.NewReader(bytes.NewReader(payload[2:]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSerializationMismatch, err)
	}
	defer func() {
		_ = zr.Close()
	}()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSerializationMismatch, err)
	}
	return &decoder{r: bytes.NewReader(raw)}, nil
}

func (d *decoder) uint32() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, fmt.Errorf("%w: truncated field", models.ErrSerializationMismatch)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func (d *decoder) int32() (int, error) {
	v, err := d.uint32()
	return int(int32(v)), err
}

func (d *decoder) boolean() (bool, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return false, fmt.Errorf("%w: truncated field", models.ErrSerializationMismatch)
	}
	return b != 0, nil
}

func (d *decoder) ascii() (string, error) {
	n, err := d.uint32()
	if err != nil {
		return "", err
	}
	if int(n) > d.r.Len() {
		return "", fmt.Errorf("%w: field overruns payload", models.ErrSerializationMismatch)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		return "", fmt.Errorf("%w: truncated field", models.ErrSerializationMismatch)
	}
	return string(b), nil
}

func (d *decoder) japanese() (string, error) {
	n, err := d.uint32()
	if err != nil {
		return "", err
	}
	if n%2 != 0 || int(n) > d.r.Len() {
		return "", fmt.Errorf("%w: invalid UTF-16 field", models.ErrSerializationMismatch)
	}
	units := make([]uint16, n/2)
	for i := range units {
		var b [2]byte
		if _, err := io.ReadFull(d.r, b[:]); err != nil {
			return "", fmt.Errorf("%w: truncated field", models.ErrSerializationMismatch)
		}
		units[i] = binary.BigEndian.Uint16(b[:])
	}
	return string(utf16.Decode(units)), nil
}

func (d *decoder) timestamp() (time.Time, error) {
	v, err := d.uint32()
	if err != nil || v == 0 {
		return time.Time{}, err
	}
	return time.Unix(int64(v), 0).UTC(), nil
}

// encodePage serializes a result page. withArticles embeds each result's
// article display fields; the first-page cache stores those under separate
// keys instead.
func encodePage(page *models.SearchResultPage, withArticles bool) ([]byte, error) {
	var e encoder
	e.japanese(page.Query.Str)
	e.uint32(uint32(page.Query.PageNum))
	e.ascii(string(page.Query.Type))
	e.uint32(uint32(page.TotalResults))
	e.boolean(page.HasNextPage)
	e.boolean(page.MaxPageReached)
	e.boolean(withArticles)

	e.uint32(uint32(len(page.Results)))
	for _, r := range page.Results {
		e.ascii(r.ArticleID)
		e.int32(r.QualityScore)

		e.uint32(uint32(len(r.MatchedBaseForms)))
		for _, bf := range r.MatchedBaseForms {
			e.japanese(bf)
		}

		e.uint32(uint32(len(r.FoundPositions)))
		for _, p := range r.FoundPositions {
			e.uint32(uint32(p.Start))
			e.uint32(uint32(p.Len))
		}

		encodeSamplePtr(&e, r.MainSample)
		e.uint32(uint32(len(r.MoreSamples)))
		for _, s := range r.MoreSamples {
			encodeSample(&e, s)
		}

		if withArticles {
			encodeArticle(&e, r.Article)
		}
	}
	return e.finish()
}

func encodeSamplePtr(e *encoder, s *models.SampleText) {
	if s == nil {
		e.boolean(false)
		return
	}
	e.boolean(true)
	encodeSample(e, s)
}

func encodeSample(e *encoder, s *models.SampleText) {
	e.uint32(uint32(s.TextStartIndex))
	e.ascii(s.ArticlePositionLabel)
	e.uint32(uint32(len(s.Segments)))
	for _, seg := range s.Segments {
		e.boolean(seg.IsQueryMatch)
		e.japanese(seg.Text)
	}
}

func encodeArticle(e *encoder, a *models.Article) {
	if a == nil {
		e.boolean(false)
		return
	}
	e.boolean(true)
	e.ascii(a.ID)
	e.japanese(a.Title)
	e.japanese(a.Author)
	e.ascii(a.SourceURL)
	e.japanese(a.SourceName)
	e.timestamp(a.PublicationDT)
	e.timestamp(a.LastUpdatedDT)
	e.boolean(a.HasVideo)
	e.uint32(uint32(len(a.Tags)))
	for _, tag := range a.Tags {
		e.japanese(tag)
	}
}

// encodeArticleEntry serializes one article for its own cache key.
func encodeArticleEntry(a *models.Article) ([]byte, error) {
	var e encoder
	encodeArticle(&e, a)
	return e.finish()
}

func decodePage(payload []byte) (*models.SearchResultPage, error) {
	d, err := newDecoder(payload)
	if err != nil {
		return nil, err
	}

	page := &models.SearchResultPage{}
	if page.Query.Str, err = d.japanese(); err != nil {
		return nil, err
	}
	pageNum, err := d.uint32()
	if err != nil {
		return nil, err
	}
	page.Query.PageNum = int(pageNum)
	qt, err := d.ascii()
	if err != nil {
		return nil, err
	}
	page.Query.Type = models.QueryType(qt)
	total, err := d.uint32()
	if err != nil {
		return nil, err
	}
	page.TotalResults = int(total)
	if page.HasNextPage, err = d.boolean(); err != nil {
		return nil, err
	}
	if page.MaxPageReached, err = d.boolean(); err != nil {
		return nil, err
	}
	withArticles, err := d.boolean()
	if err != nil {
		return nil, err
	}

	count, err := d.uint32()
	if err != nil {
		return nil, err
	}
	page.Results = make([]*models.SearchResult, 0, capCount(count))
	for range count {
		r, err := decodeResult(d, withArticles)
		if err != nil {
			return nil, err
		}
		page.Results = append(page.Results, r)
	}
	return page, nil
}

func decodeResult(d *decoder, withArticle bool) (*models.SearchResult, error) {
	r := &models.SearchResult{}
	var err error
	if r.ArticleID, err = d.ascii(); err != nil {
		return nil, err
	}
	if r.QualityScore, err = d.int32(); err != nil {
		return nil, err
	}

	n, err := d.uint32()
	if err != nil {
		return nil, err
	}
	r.MatchedBaseForms = make([]string, 0, capCount(n))
	for range n {
		bf, err := d.japanese()
		if err != nil {
			return nil, err
		}
		r.MatchedBaseForms = append(r.MatchedBaseForms, bf)
	}

	if n, err = d.uint32(); err != nil {
		return nil, err
	}
	r.FoundPositions = make([]models.Position, 0, capCount(n))
	for range n {
		start, err := d.uint32()
		if err != nil {
			return nil, err
		}
		length, err := d.uint32()
		if err != nil {
			return nil, err
		}
		r.FoundPositions = append(r.FoundPositions, models.Position{Start: int(start), Len: int(length)})
	}

	if r.MainSample, err = decodeSamplePtr(d); err != nil {
		return nil, err
	}
	if n, err = d.uint32(); err != nil {
		return nil, err
	}
	for range n {
		s, err := decodeSample(d)
		if err != nil {
			return nil, err
		}
		r.MoreSamples = append(r.MoreSamples, s)
	}

	if withArticle {
		if r.Article, err = decodeArticle(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func decodeSamplePtr(d *decoder) (*models.SampleText, error) {
	present, err := d.boolean()
	if err != nil || !present {
		return nil, err
	}
	return decodeSample(d)
}

func decodeSample(d *decoder) (*models.SampleText, error) {
	s := &models.SampleText{}
	start, err := d.uint32()
	if err != nil {
		return nil, err
	}
	s.TextStartIndex = int(start)
	if s.ArticlePositionLabel, err = d.ascii(); err != nil {
		return nil, err
	}
	n, err := d.uint32()
	if err != nil {
		return nil, err
	}
	s.Segments = make([]models.Segment, 0, capCount(n))
	for range n {
		isMatch, err := d.boolean()
		if err != nil {
			return nil, err
		}
		text, err := d.japanese()
		if err != nil {
			return nil, err
		}
		s.Segments = append(s.Segments, models.Segment{IsQueryMatch: isMatch, Text: text})
	}
	return s, nil
}

func decodeArticle(d *decoder) (*models.Article, error) {
	present, err := d.boolean()
	if err != nil || !present {
		return nil, err
	}

	a := &models.Article{}
	if a.ID, err = d.ascii(); err != nil {
		return nil, err
	}
	if a.Title, err = d.japanese(); err != nil {
		return nil, err
	}
	if a.Author, err = d.japanese(); err != nil {
		return nil, err
	}
	if a.SourceURL, err = d.ascii(); err != nil {
		return nil, err
	}
	if a.SourceName, err = d.japanese(); err != nil {
		return nil, err
	}
	if a.PublicationDT, err = d.timestamp(); err != nil {
		return nil, err
	}
	if a.LastUpdatedDT, err = d.timestamp(); err != nil {
		return nil, err
	}
	if a.HasVideo, err = d.boolean(); err != nil {
		return nil, err
	}
	n, err := d.uint32()
	if err != nil {
		return nil, err
	}
	for range n {
		tag, err := d.japanese()
		if err != nil {
			return nil, err
		}
		a.Tags = append(a.Tags, tag)
	}
	return a, nil
}

// decodeArticleEntry deserializes one article cache entry.
func decodeArticleEntry(payload []byte) (*models.Article, error) {
	d, err := newDecoder(payload)
	if err != nil {
		return nil, err
	}
	return decodeArticle(d)
}
