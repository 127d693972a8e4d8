package models

// NewTestCatalog creates an in-memory catalog preloaded with the given ads.
// With no arguments it loads the default 8-ad catalog.
func NewTestCatalog(ads ...Ad) Catalog {
	c := NewInMemoryCatalog()
	if len(ads) == 0 {
		ads = DefaultAds()
	}
	if err := c.SetAds(ads); err != nil {
		panic(err)
	}
	return c
}
