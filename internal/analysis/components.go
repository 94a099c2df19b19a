package analysis

type ComponentDetector struct {
	catalog *Catalog
}

func NewComponentDetector(catalog *Catalog) *ComponentDetector {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &ComponentDetector{catalog: catalog}
}

// Detect returns the component tags whose patterns match the title or body,
// in vocabulary order. A component is tagged at most once.
func (d *ComponentDetector) Detect(title, body string) []string {
	text := title + " " + body
	var tags []string
	for _, rule := range d.catalog.Components {
		for _, re := range rule.Patterns {
			if re.MatchString(text) {
				tags = append(tags, rule.Tag)
				break
			}
		}
	}
	return tags
}
