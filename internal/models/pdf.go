package models

const (
	DocumentDocx = "docx"
	DocumentXlsx = "xlsx"
	DocumentPptx = "pptx"
)

type CompressionLevel string

const (
	CompressionGoodEnough CompressionLevel = "good_enough"
	CompressionAggressive CompressionLevel = "aggressive"
	CompressionUltra      CompressionLevel = "ultra"
)

func (l CompressionLevel) Valid() bool {
	switch l {
	case CompressionGoodEnough, CompressionAggressive, CompressionUltra:
		return true
	}
	return false
}

type SecurityMode string

const (
	SecurityLock   SecurityMode = "lock"
	SecurityUnlock SecurityMode = "unlock"
)

type SecurityOptions struct {
	Mode     SecurityMode `json:"mode"`
	Password string       `json:"-"`
}

type SecurityResult struct {
	Data      []byte `json:"-"`
	Filename  string `json:"filename"`
	Protected bool   `json:"protected"`
	Note      string `json:"note,omitempty"`
}

type PDFCompressionResult struct {
	Data         []byte           `json:"-"`
	Filename     string           `json:"filename"`
	Level        CompressionLevel `json:"level"`
	OriginalSize int64            `json:"original_size"`
	OutputSize   int64            `json:"output_size"`
	SavedPercent float64          `json:"saved_percent"`
}

type DocumentResult struct {
	Data        []byte `json:"-"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Pages       int    `json:"pages"`
	Size        int64  `json:"size"`
}
