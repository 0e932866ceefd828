package models

type TextCase string

const (
	CaseUpper       TextCase = "upper"
	CaseLower       TextCase = "lower"
	CaseSentence    TextCase = "sentence"
	CaseTitle       TextCase = "title"
	CaseToggle      TextCase = "toggle"
	CaseAlternating TextCase = "alternating"
)

type TextStats struct {
	Characters        int `json:"characters"`
	CharactersNoSpace int `json:"characters_no_spaces"`
	Words             int `json:"words"`
	Lines             int `json:"lines"`
}

type ShortLink struct {
	Code      string `json:"code"`
	URL       string `json:"url"`
	ShortURL  string `json:"short_url,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}
