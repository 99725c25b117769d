package dto

// View modes reported to the browser.
const (
	ModeNone   = "none"
	ModeUpload = "upload"
	ModeAll    = "all"
	ModeSingle = "single"
)

// ViewData is what the browser needs to redraw the image and caption regions.
type ViewData struct {
	Caption  string `json:"caption"`
	Cursor   int    `json:"cursor"`
	Total    int    `json:"total"`
	Mode     string `json:"mode"`
	Model    string `json:"model,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	Filename string `json:"filename,omitempty"`
}
