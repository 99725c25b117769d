package dto

// ModelsData lists the selectable models; Default is preselected in the UI.
type ModelsData struct {
	Models  []string `json:"models"`
	Default string   `json:"default"`
}

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}
