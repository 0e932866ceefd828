package models

type MediaResult struct {
	Data        []byte `json:"-"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type Transcript struct {
	Language string `json:"language"`
	Text     string `json:"text"`
}
