package inat

// SpeciesSummary is one species-rank entry from the taxa listing, carrying
// just the fields the pipeline needs.
type SpeciesSummary struct {
	ID                  int    // iNaturalist taxon id
	ScientificName      string
	PreferredCommonName string // empty when upstream has none
	DefaultPhotoURL     string // medium-size default photo, empty when none
}

// Title returns the display name for a species: the preferred common name
// when present, the scientific name otherwise.
func (s *SpeciesSummary) Title() string {
	if s.PreferredCommonName != "" {
		return s.PreferredCommonName
	}
	return s.ScientificName
}

// --- wire types ---

type taxaResponse struct {
	Results []taxonResult `json:"results"`
}

type taxonResult struct {
	ID                  int    `json:"id"`
	Name                string `json:"name"`
	Rank                string `json:"rank"`
	PreferredCommonName string `json:"preferred_common_name"`
	DefaultPhoto        *photo `json:"default_photo"`
}

type photo struct {
	URL       string `json:"url"`
	MediumURL string `json:"medium_url"`
}

type observationsResponse struct {
	Results []observationResult `json:"results"`
}

type observationResult struct {
	Photos []photo           `json:"photos"`
	Taxon  *observationTaxon `json:"taxon"`
}

type observationTaxon struct {
	DefaultPhoto *photo `json:"default_photo"`
}

// mediumURL returns the best medium-resolution URL for a photo: the
// explicit medium_url when present, otherwise the photo URL with the
// square-thumbnail marker substituted.
func (p *photo) mediumURL() string {
	if p.MediumURL != "" {
		return p.MediumURL
	}
	return squareToMedium(p.URL)
}
