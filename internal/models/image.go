package models

const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatWebP = "webp"
)

// CompressionTarget is a byte budget in kilobytes.
type CompressionTarget int

const (
	Target250KB  CompressionTarget = 250
	Target350KB  CompressionTarget = 350
	Target500KB  CompressionTarget = 500
	Target1024KB CompressionTarget = 1024
)

var CompressionTargets = []CompressionTarget{Target250KB, Target350KB, Target500KB, Target1024KB}

func (t CompressionTarget) Valid() bool {
	for _, v := range CompressionTargets {
		if v == t {
			return true
		}
	}
	return false
}

func (t CompressionTarget) Bytes() int {
	return int(t) * 1024
}

type CompressionResult struct {
	Data         []byte  `json:"-"`
	Size         int     `json:"size"`
	OriginalSize int     `json:"original_size"`
	Quality      float64 `json:"quality"`
	Iterations   int     `json:"iterations"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	TargetKB     int     `json:"target_kb"`
	MetTarget    bool    `json:"met_target"`
}

type PlatformPreset struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Note   string `json:"note"`
}

var PlatformPresets = []PlatformPreset{
	{Key: "mercado_livre", Label: "Mercado Livre", Width: 1200, Height: 1200, Note: "Square product photo"},
	{Key: "shopee", Label: "Shopee", Width: 1080, Height: 1080, Note: "Square product photo"},
	{Key: "amazon", Label: "Amazon", Width: 1600, Height: 1600, Note: "Enables zoom on the product page"},
	{Key: "instagram_feed", Label: "Instagram Feed", Width: 1080, Height: 1350, Note: "Portrait 4:5"},
	{Key: "instagram_story", Label: "Instagram Story", Width: 1080, Height: 1920, Note: "Vertical 9:16"},
	{Key: "whatsapp_status", Label: "WhatsApp Status", Width: 1080, Height: 1920, Note: "Vertical 9:16"},
	{Key: "linkedin", Label: "LinkedIn", Width: 1200, Height: 628, Note: "Link share image"},
	{Key: "google_meu_negocio", Label: "Google Meu Negócio", Width: 1200, Height: 900, Note: "Business profile photo 4:3"},
}

func FindPreset(key string) (PlatformPreset, bool) {
	for _, p := range PlatformPresets {
		if p.Key == key {
			return p, true
		}
	}
	return PlatformPreset{}, false
}

// Rect is a placement inside a canvas.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type RectF struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type ProcessedImage struct {
	Data        []byte `json:"-"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Format      string `json:"format"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	FileSize    int64  `json:"file_size"`
}
