package schema

// CatalogMangaTable represents the 'catalog.manga' table
type CatalogMangaTable struct {
	Table            string
	ID               string
	Title            string
	AltTitle         string
	Slug             string
	Status           string
	PublishedYear    string
	Genres           string
	OriginalLanguage string
	CoverURL         string
	CreatedAt        string
	UpdatedAt        string
}

// CatalogManga is the schema definition for catalog.manga
var CatalogManga = CatalogMangaTable{
	Table:            "catalog.manga",
	ID:               "id",
	Title:            "title",
	AltTitle:         "alttitle",
	Slug:             "slug",
	Status:           "status",
	PublishedYear:    "publishedyear",
	Genres:           "genres",
	OriginalLanguage: "originallanguage",
	CoverURL:         "coverurl",
	CreatedAt:        "createdat",
	UpdatedAt:        "updatedat",
}

func (t CatalogMangaTable) Columns() []string {
	return []string{
		t.ID, t.Title, t.AltTitle, t.Slug, t.Status, t.PublishedYear,
		t.Genres, t.OriginalLanguage, t.CoverURL, t.CreatedAt, t.UpdatedAt,
	}
}
