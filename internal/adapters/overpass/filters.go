package overpass

// filter is one Overpass QL selector: element["key"="value"].
type filter struct {
	Element string
	Key     string
	Value   string
}

func (f filter) String() string {
	return f.Element + `["` + f.Key + `"="` + f.Value + `"]`
}

func (f filter) matches(el element) bool {
	return el.Type == f.Element && el.Tags[f.Key] == f.Value
}

// tagFilters maps interest tags to POI selectors. Tags about the road itself
// (low_traffic, gravel_ok) or elevation (minimize_hills, maximize_hills) are
// not POIs and have no entry.
var tagFilters = map[string][]filter{
	"coffee_shop":  {{"node", "amenity", "cafe"}},
	"scenic_views": {{"node", "tourism", "viewpoint"}},
	"waterfront":   {{"way", "natural", "water"}},

	// Organizer category labels.
	"Coffee":     {{"node", "amenity", "cafe"}},
	"Food":       {{"node", "amenity", "restaurant"}, {"node", "amenity", "fast_food"}},
	"Viewpoints": {{"node", "tourism", "viewpoint"}},
	"Breweries":  {{"node", "craft", "brewery"}, {"node", "amenity", "biergarten"}},
}

// Queryable reports whether tag maps to at least one POI selector.
func Queryable(tag string) bool {
	return len(tagFilters[tag]) > 0
}
