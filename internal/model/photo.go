package model

// Photo mirrors the subset of the Unsplash photo object the site renders.
type Photo struct {
	ID          string     `json:"id"`
	CreatedAt   string     `json:"created_at"`
	UpdatedAt   string     `json:"updated_at"`
	Width       int        `json:"width"`
	Height      int        `json:"height"`
	Color       string     `json:"color"`
	BlurHash    string     `json:"blur_hash"`
	Likes       int        `json:"likes"`
	LikedByUser bool       `json:"liked_by_user"`
	Description *string    `json:"description"`
	User        PhotoUser  `json:"user"`
	URLs        PhotoURLs  `json:"urls"`
	Links       PhotoLinks `json:"links"`
}

type PhotoUser struct {
	ID                string  `json:"id"`
	Username          string  `json:"username"`
	Name              string  `json:"name"`
	PortfolioURL      *string `json:"portfolio_url"`
	Bio               *string `json:"bio"`
	Location          *string `json:"location"`
	TotalLikes        int     `json:"total_likes"`
	TotalPhotos       int     `json:"total_photos"`
	TotalCollections  int     `json:"total_collections"`
	InstagramUsername *string `json:"instagram_username"`
	TwitterUsername   *string `json:"twitter_username"`
	ProfileImage      struct {
		Small  string `json:"small"`
		Medium string `json:"medium"`
		Large  string `json:"large"`
	} `json:"profile_image"`
	Links struct {
		Self      string `json:"self"`
		HTML      string `json:"html"`
		Photos    string `json:"photos"`
		Likes     string `json:"likes"`
		Portfolio string `json:"portfolio"`
	} `json:"links"`
}

type PhotoURLs struct {
	Raw     string `json:"raw"`
	Full    string `json:"full"`
	Regular string `json:"regular"`
	Small   string `json:"small"`
	Thumb   string `json:"thumb"`
}

type PhotoLinks struct {
	Self             string `json:"self"`
	HTML             string `json:"html"`
	Download         string `json:"download"`
	DownloadLocation string `json:"download_location"`
}

type PhotoSearchResult struct {
	Total      int     `json:"total"`
	TotalPages int     `json:"total_pages"`
	Results    []Photo `json:"results"`
}

// DownloadTicket is returned when a download is tracked.
type DownloadTicket struct {
	URL string `json:"url"`
}
