package schema

// CatalogChapterTable represents the 'catalog.chapter' table
type CatalogChapterTable struct {
	Table     string
	ID        string
	MangaID   string
	Number    string
	Volume    string
	Title     string
	Lang      string
	Pages     string
	CreatedAt string
}

// CatalogChapter is the schema definition for catalog.chapter
var CatalogChapter = CatalogChapterTable{
	Table:     "catalog.chapter",
	ID:        "id",
	MangaID:   "mangaid",
	Number:    "number",
	Volume:    "volume",
	Title:     "title",
	Lang:      "lang",
	Pages:     "pages",
	CreatedAt: "createdat",
}

func (t CatalogChapterTable) Columns() []string {
	return []string{
		t.ID, t.MangaID, t.Number, t.Volume, t.Title, t.Lang, t.Pages, t.CreatedAt,
	}
}
