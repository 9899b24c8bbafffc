package site

// Screenshot is a captured image of the visible tab.
type Screenshot struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	DataURL   string `json:"dataUrl"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Domain    string `json:"domain"`
}

// ScreenshotMeta is a Screenshot without its image payload, for listings.
type ScreenshotMeta struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Domain    string `json:"domain"`
	Bytes     int    `json:"bytes"`
}

// Meta strips the image payload.
func (s Screenshot) Meta() ScreenshotMeta {
	return ScreenshotMeta{
		ID:        s.ID,
		Timestamp: s.Timestamp,
		URL:       s.URL,
		Title:     s.Title,
		Domain:    s.Domain,
		Bytes:     len(s.DataURL),
	}
}
