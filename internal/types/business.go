package types

// Offering is one product or service the business sells.
type Offering struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// Testimonial is a customer quote.
type Testimonial struct {
	Quote  string  `json:"quote"`
	Author string  `json:"author,omitempty"`
	Rating float64 `json:"rating,omitempty"`
	Source string  `json:"source,omitempty"`
	Date   string  `json:"date,omitempty"`
}

// Contact holds contact facts. These are only ever copied from source data.
type Contact struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	Website string `json:"website,omitempty"`
}

// RatingSummary is an aggregate review rating.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Confidence levels reported by the extractor.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// DataQuality is the extractor's self-assessment of the record.
type DataQuality struct {
	Score           int      `json:"score"`
	MissingCritical []string `json:"missing_critical"`
	MissingOptional []string `json:"missing_optional"`
	Confidence      string   `json:"confidence,omitempty"`
	SourcesUsed     []string `json:"sources_used,omitempty"`
	GapFilled       bool     `json:"gap_filled,omitempty"`
}

// BusinessRecord is the normalized output of extraction.
type BusinessRecord struct {
	BusinessName        string            `json:"business_name"`
	Tagline             string            `json:"tagline,omitempty"`
	DescriptionShort    string            `json:"description_short,omitempty"`
	DescriptionLong     string            `json:"description_long,omitempty"`
	Category            string            `json:"category,omitempty"`
	YearEstablished     string            `json:"year_established,omitempty"`
	Services            []Offering        `json:"services,omitempty"`
	UniqueSellingPoints []string          `json:"unique_selling_points,omitempty"`
	Testimonials        []Testimonial     `json:"testimonials,omitempty"`
	Contact             Contact           `json:"contact"`
	Hours               map[string]string `json:"hours,omitempty"`
	SocialMedia         map[string]string `json:"social_media,omitempty"`
	Rating              *RatingSummary    `json:"rating,omitempty"`
	DataQuality         DataQuality       `json:"data_quality"`
}

// Description returns the best available description.
func (r *BusinessRecord) Description() string {
	if r.DescriptionShort != "" {
		return r.DescriptionShort
	}
	if r.DescriptionLong != "" {
		return r.DescriptionLong
	}
	return r.Tagline
}
