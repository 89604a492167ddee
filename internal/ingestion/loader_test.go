package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/rohankatakam/kgbuilder/internal/errors"
)

const reviewFixture = `{"reviewerID":"u1","asin":"i1","overall":5.0,"reviewText":"great"}
{"reviewerID":"","asin":"i2"}
not json

{"reviewerID":"u2","asin":"i2"}
`

const metadataFixture = `{"asin":"i1","title":"Widget","description":["first","second"],"brand":"acme","categories":[["A","B"],["C"]]}
{"asin":"i2","title":"Gadget","description":"plain","categories":"oops"}
{"title":"orphan"}
{"asin":"i1","title":"Widget v2"}
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func writeGzipFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestLoadAmazonReviews(t *testing.T) {
	for name, path := range map[string]func(t *testing.T) string{
		"plain": func(t *testing.T) string { return writeFixture(t, "reviews.json", reviewFixture) },
		"gzip":  func(t *testing.T) string { return writeGzipFixture(t, "reviews.json.gz", reviewFixture) },
	} {
		t.Run(name, func(t *testing.T) {
			reviews, stats, err := LoadAmazonReviews(context.Background(), path(t))
			require.NoError(t, err)

			require.Len(t, reviews, 2)
			assert.Equal(t, "u1", reviews[0].User)
			assert.Equal(t, "i1", reviews[0].Item)
			assert.Equal(t, "great", reviews[0].Text)
			require.NotNil(t, reviews[0].Rating)
			assert.Equal(t, 5.0, *reviews[0].Rating)
			assert.Nil(t, reviews[1].Rating)

			assert.Equal(t, LoadStats{Lines: 4, Loaded: 2, Skipped: 1, Malformed: 1}, stats)
		})
	}
}

func TestLoadAmazonReviews_EmptyContainersSkipped(t *testing.T) {
	path := writeFixture(t, "reviews.json", `{"reviewerID":{},"asin":"i1"}
{"reviewerID":"u1","asin":[]}
{"reviewerID":{"id":"u1"},"asin":"i1"}
{"reviewerID":"u2","asin":"i2"}
`)
	reviews, stats, err := LoadAmazonReviews(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, reviews, 2)
	assert.Equal(t, "i1", reviews[0].Item)
	assert.Equal(t, "u2", reviews[1].User)
	assert.Equal(t, LoadStats{Lines: 4, Loaded: 2, Skipped: 2}, stats)
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		json string
		want bool
	}{
		{`{"v":"x"}`, true},
		{`{"v":""}`, false},
		{`{"v":0}`, false},
		{`{"v":1.5}`, true},
		{`{"v":null}`, false},
		{`{"v":false}`, false},
		{`{"v":true}`, true},
		{`{"v":{}}`, false},
		{`{"v":{"a":1}}`, true},
		{`{"v":[]}`, false},
		{`{"v":[0]}`, true},
		{`{}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.json, func(t *testing.T) {
			assert.Equal(t, tt.want, truthy(gjson.Get(tt.json, "v")))
		})
	}
}

func TestLoadAmazonMetadata(t *testing.T) {
	catalog, stats, err := LoadAmazonMetadata(context.Background(), writeFixture(t, "meta.json", metadataFixture))
	require.NoError(t, err)

	assert.Equal(t, LoadStats{Lines: 4, Loaded: 3, Skipped: 1}, stats)
	require.Equal(t, 2, catalog.Len())

	items := catalog.Items()
	assert.Equal(t, "i1", items[0].Item)
	assert.Equal(t, "i2", items[1].Item)

	i1, ok := catalog.Get("i1")
	require.True(t, ok)
	assert.Equal(t, "Widget v2", i1.Title)
	assert.Empty(t, i1.Description)
	assert.Empty(t, i1.Categories)

	i2, ok := catalog.Get("i2")
	require.True(t, ok)
	assert.Equal(t, "plain", i2.Description)
	assert.Empty(t, i2.Brand)
	assert.Empty(t, i2.Categories)
}

func TestLoadAmazonMetadata_ListFields(t *testing.T) {
	path := writeFixture(t, "meta.json", strings.SplitN(metadataFixture, "\n", 2)[0]+"\n")
	catalog, _, err := LoadAmazonMetadata(context.Background(), path)
	require.NoError(t, err)

	i1, ok := catalog.Get("i1")
	require.True(t, ok)
	assert.Equal(t, "first", i1.Description)
	assert.Equal(t, "acme", i1.Brand)
	assert.Equal(t, []string{"A", "B"}, i1.Categories)
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := LoadAmazonReviews(context.Background(), filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeFileSystem, errors.GetType(err))
}

func TestLoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := LoadAmazonReviews(ctx, writeFixture(t, "reviews.json", reviewFixture))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReservedLoaders(t *testing.T) {
	_, _, err := LoadYelpReviews(context.Background(), "yelp.json")
	assert.ErrorIs(t, err, errors.ErrNotImplemented)

	_, _, err = LoadWikidataTriples(context.Background(), "wikidata.json")
	assert.ErrorIs(t, err, errors.ErrNotImplemented)
}
