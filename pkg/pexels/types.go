package pexels

// PhotosResponse is the envelope returned by the curated and search endpoints.
type PhotosResponse struct {
	TotalResults int     `json:"total_results"`
	Page         int     `json:"page"`
	PerPage      int     `json:"per_page"`
	Photos       []Photo `json:"photos"`
	NextPage     string  `json:"next_page"`
	PrevPage     string  `json:"prev_page"`
}

// Photo is a single Pexels photo.
type Photo struct {
	ID              int    `json:"id"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	URL             string `json:"url"`
	Photographer    string `json:"photographer"`
	PhotographerURL string `json:"photographer_url"`
	PhotographerID  int    `json:"photographer_id"`
	AvgColor        string `json:"avg_color"`
	Src             Src    `json:"src"`
	Liked           bool   `json:"liked"`
	Alt             string `json:"alt"`
}

// Src holds the resolution variants Pexels serves for a photo.
type Src struct {
	Original  string `json:"original"`
	Large2x   string `json:"large2x"`
	Large     string `json:"large"`
	Medium    string `json:"medium"`
	Small     string `json:"small"`
	Portrait  string `json:"portrait"`
	Landscape string `json:"landscape"`
	Tiny      string `json:"tiny"`
}

// PhotosPage is one page of results.
type PhotosPage struct {
	Page         int
	PerPage      int
	TotalResults int
	Photos       []Photo
	HasNext      bool
}
