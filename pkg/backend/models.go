package backend

// Komga API models. Only the fields consulted by the gate are decoded.

type komgaBook struct {
	ID       string        `json:"id"`
	SeriesID string        `json:"seriesId"`
	Metadata komgaMetadata `json:"metadata"`
}

type komgaSeries struct {
	ID       string        `json:"id"`
	Metadata komgaMetadata `json:"metadata"`
}

type komgaMetadata struct {
	Tags []string `json:"tags"`
}

// Kavita API models.

type kavitaChapter struct {
	ID       int `json:"id"`
	VolumeID int `json:"volumeId"`
}

type kavitaVolume struct {
	ID       int `json:"id"`
	SeriesID int `json:"seriesId"`
}

type kavitaSeriesMetadata struct {
	Tags []kavitaTag `json:"tags"`
}

type kavitaTag struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}
