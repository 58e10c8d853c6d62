// conf/taxa.go fixed set of taxonomic groups a run may choose from.
package conf

// TaxonGroup identifies one taxonomic group to ingest: the iNaturalist
// parent taxon, the human-readable category written to every document, and
// the iconic taxon used to scope the species listing.
type TaxonGroup struct {
	TaxonID     int    // iNaturalist taxon id of the parent taxon
	Category    string // category label written to persisted documents
	IconicTaxon string // iconic taxon name used as a listing filter
}

// taxonGroups is the fixed configuration: one of these is picked at random
// per run. Static, not user-configurable.
var taxonGroups = []TaxonGroup{
	{TaxonID: 20979, Category: "Frogs", IconicTaxon: "Amphibia"},
	{TaxonID: 26718, Category: "Salamanders", IconicTaxon: "Amphibia"},
	{TaxonID: 85553, Category: "Snakes", IconicTaxon: "Reptilia"},
	{TaxonID: 39532, Category: "Turtles", IconicTaxon: "Reptilia"},
	{TaxonID: 3, Category: "Birds", IconicTaxon: "Aves"},
	{TaxonID: 40151, Category: "Mammals", IconicTaxon: "Mammalia"},
	{TaxonID: 47792, Category: "Dragonflies", IconicTaxon: "Insecta"},
	{TaxonID: 47224, Category: "Butterflies", IconicTaxon: "Insecta"},
}

// TaxonGroups returns a copy of the fixed taxon group set.
func TaxonGroups() []TaxonGroup {
	groups := make([]TaxonGroup, len(taxonGroups))
	copy(groups, taxonGroups)
	return groups
}
