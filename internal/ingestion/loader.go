package ingestion

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/tidwall/gjson"

	"github.com/rohankatakam/kgbuilder/internal/errors"
	"github.com/rohankatakam/kgbuilder/internal/models"
)

// maxLineSize bounds a single JSON line; metadata rows with long
// descriptions run to a few hundred KB
const maxLineSize = 16 * 1024 * 1024

// LoadStats counts what happened to the lines of one input file
type LoadStats struct {
	Lines     int `json:"lines"`
	Loaded    int `json:"loaded"`
	Skipped   int `json:"skipped"`   // valid JSON lacking required fields
	Malformed int `json:"malformed"` // not valid JSON
}

// ReadJSONLines streams line-delimited JSON from path, gunzipping when the
// file starts with the gzip magic bytes. Blank lines are ignored and
// malformed lines are counted, never fatal. fn reports whether the row was
// kept.
func ReadJSONLines(ctx context.Context, path string, fn func(row gjson.Result) bool) (LoadStats, error) {
	var stats LoadStats

	f, err := os.Open(path)
	if err != nil {
		return stats, errors.FileSystemErrorf(err, "failed to open %s", path)
	}
	defer f.Close()

	r, closeReader, err := openMaybeGzip(f)
	if err != nil {
		return stats, errors.FileSystemErrorf(err, "failed to read %s", path)
	}
	defer closeReader()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		if stats.Lines%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}
		line := trimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.Lines++
		if !gjson.ValidBytes(line) {
			stats.Malformed++
			continue
		}
		if fn(gjson.ParseBytes(line)) {
			stats.Loaded++
		} else {
			stats.Skipped++
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, errors.FileSystemErrorf(err, "failed to scan %s", path)
	}
	return stats, nil
}

func openMaybeGzip(f *os.File) (io.Reader, func(), error) {
	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, nil, err
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { zr.Close() }, nil
	}
	return br, func() {}, nil
}

func trimSpace(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && isSpace(b[start]) {
		start++
	}
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// truthy follows JSON truthiness: missing, null, false, 0, "" and empty
// containers are all false
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	case gjson.JSON:
		if r.IsObject() {
			return len(r.Map()) > 0
		}
		return len(r.Array()) > 0
	default:
		return r.Exists()
	}
}

// text returns r as a string, or "" when it is falsy
func text(r gjson.Result) string {
	if !truthy(r) {
		return ""
	}
	return r.String()
}

// LoadAmazonReviews reads an Amazon review dump. Rows without reviewerID or
// asin are skipped; a missing overall leaves Rating nil.
func LoadAmazonReviews(ctx context.Context, path string) ([]models.Review, LoadStats, error) {
	var reviews []models.Review
	stats, err := ReadJSONLines(ctx, path, func(row gjson.Result) bool {
		user := row.Get("reviewerID")
		item := row.Get("asin")
		if !truthy(user) || !truthy(item) {
			return false
		}
		review := models.Review{
			User: user.String(),
			Item: item.String(),
			Text: text(row.Get("reviewText")),
		}
		if overall := row.Get("overall"); overall.Exists() && overall.Type != gjson.Null {
			rating := overall.Float()
			review.Rating = &rating
		}
		reviews = append(reviews, review)
		return true
	})
	if err != nil {
		return nil, stats, err
	}
	return reviews, stats, nil
}

// LoadAmazonMetadata reads an Amazon metadata dump into a catalog keyed by
// asin. A repeated asin replaces the earlier record in place.
func LoadAmazonMetadata(ctx context.Context, path string) (*models.Catalog, LoadStats, error) {
	catalog := models.NewCatalog()
	stats, err := ReadJSONLines(ctx, path, func(row gjson.Result) bool {
		asin := row.Get("asin")
		if !truthy(asin) {
			return false
		}
		catalog.Put(models.ItemMetadata{
			Item:        asin.String(),
			Title:       text(row.Get("title")),
			Description: description(row.Get("description")),
			Brand:       text(row.Get("brand")),
			Categories:  firstCategoryPath(row.Get("categories")),
		})
		return true
	})
	if err != nil {
		return nil, stats, err
	}
	return catalog, stats, nil
}

// description accepts a string or a list of strings, keeping the first
func description(r gjson.Result) string {
	if r.IsArray() {
		items := r.Array()
		if len(items) == 0 {
			return ""
		}
		return text(items[0])
	}
	return text(r)
}

// firstCategoryPath flattens the first category path of a nested list.
// Anything else yields no categories.
func firstCategoryPath(r gjson.Result) []string {
	if !r.IsArray() {
		return nil
	}
	paths := r.Array()
	if len(paths) == 0 || !paths[0].IsArray() {
		return nil
	}
	var out []string
	for _, c := range paths[0].Array() {
		out = append(out, c.String())
	}
	return out
}

// LoadYelpReviews is reserved for the Yelp academic dataset
func LoadYelpReviews(ctx context.Context, path string) ([]models.Review, LoadStats, error) {
	return nil, LoadStats{}, errors.NotImplementedf("yelp review loading is not implemented")
}

// LoadWikidataTriples is reserved for Wikidata entity links
func LoadWikidataTriples(ctx context.Context, path string) ([]models.Triple, LoadStats, error) {
	return nil, LoadStats{}, errors.NotImplementedf("wikidata triple loading is not implemented")
}
