package dto

type SettingsResponse struct {
	Autoplay bool `json:"autoplay"`
	Shuffle  bool `json:"shuffle"`
}

type UpdateSettingsRequest struct {
	Autoplay *bool `json:"autoplay,omitempty"`
	Shuffle  *bool `json:"shuffle,omitempty"`
}
