package itunes

// searchResponse is the shape shared by /search and /lookup.
type searchResponse struct {
	ResultCount int              `json:"resultCount"`
	Results     []searchResult   `json:"results"`
}

// searchResult covers both track ("song") and collection ("album")
// result kinds; unused fields are simply left zero for the other kind.
type searchResult struct {
	WrapperType      string `json:"wrapperType"`
	Kind             string `json:"kind"`
	TrackID          int64  `json:"trackId"`
	TrackName        string `json:"trackName"`
	CollectionID     int64  `json:"collectionId"`
	CollectionName   string `json:"collectionName"`
	ArtistName       string `json:"artistName"`
	TrackViewURL     string `json:"trackViewUrl"`
	CollectionViewURL string `json:"collectionViewUrl"`
	ArtworkURL100    string `json:"artworkUrl100"`
}
