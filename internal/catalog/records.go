package catalog

// Records mirror the external catalog's JSON vocabulary. Every value is a
// string upstream, including numbers and the "N/A" sentinel; normalization
// happens in the ingest package.

// envelope carries the in-band success flag present on every response.
type envelope struct {
	Response string `json:"Response"`
	Error    string `json:"Error"`
}

func (e envelope) ok() bool {
	return e.Response == "True"
}

// TitleRecord is a movie or series lookup result.
type TitleRecord struct {
	envelope
	Title        string `json:"Title"`
	Year         string `json:"Year"`
	Released     string `json:"Released"`
	Runtime      string `json:"Runtime"`
	Genre        string `json:"Genre"`
	Plot         string `json:"Plot"`
	Poster       string `json:"Poster"`
	IMDbRating   string `json:"imdbRating"`
	IMDbID       string `json:"imdbID"`
	Type         string `json:"Type"`
	TotalSeasons string `json:"totalSeasons"`
}

// SeasonRecord is one season of a series. Its episode list only carries
// stubs; full episode data needs one lookup per stub.
type SeasonRecord struct {
	envelope
	Title        string        `json:"Title"`
	Season       string        `json:"Season"`
	TotalSeasons string        `json:"totalSeasons"`
	Episodes     []EpisodeStub `json:"Episodes"`
}

// EpisodeStub is one entry of a season's episode list.
type EpisodeStub struct {
	Title      string `json:"Title"`
	Released   string `json:"Released"`
	Episode    string `json:"Episode"`
	IMDbRating string `json:"imdbRating"`
	IMDbID     string `json:"imdbID"`
}

// EpisodeRecord is a full episode lookup result.
type EpisodeRecord struct {
	envelope
	Title      string `json:"Title"`
	Released   string `json:"Released"`
	Season     string `json:"Season"`
	Episode    string `json:"Episode"`
	Runtime    string `json:"Runtime"`
	Plot       string `json:"Plot"`
	Poster     string `json:"Poster"`
	IMDbRating string `json:"imdbRating"`
	IMDbID     string `json:"imdbID"`
	SeriesID   string `json:"seriesID"`
}
