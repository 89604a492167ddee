package embedding

import (
	"strings"

	"github.com/rohankatakam/kgbuilder/internal/graph"
	"github.com/rohankatakam/kgbuilder/internal/models"
)

// ItemTexts returns one text per item id: "title. description", or the
// title alone when useDescription is false. Items without metadata get the
// text of an empty record.
func ItemTexts(catalog *models.Catalog, items *graph.EntityMap, useDescription bool) []string {
	texts := make([]string, items.Len())
	for id, key := range items.Keys() {
		meta, _ := catalog.Get(key)
		texts[id] = itemText(meta, useDescription)
	}
	return texts
}

func itemText(meta models.ItemMetadata, useDescription bool) string {
	if !useDescription {
		return strings.TrimSpace(meta.Title)
	}
	return strings.TrimSpace(meta.Title + ". " + meta.Description)
}
