package models

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Settings is the small persisted app-settings document. The caregiver PIN is
// stored only as a bcrypt hash.
type Settings struct {
	Autoplay         bool   `json:"autoplay"`
	Shuffle          bool   `json:"shuffle"`
	CaregiverPINHash string `json:"caregiver_pin_hash,omitempty"`
}
