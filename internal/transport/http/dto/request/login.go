package request

type CaregiverLoginRequest struct {
	PIN string `json:"pin" validate:"required,min=4,max=8,numeric"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ChangePINRequest struct {
	CurrentPIN string `json:"current_pin" validate:"required"`
	NewPIN     string `json:"new_pin" validate:"required,min=4,max=8,numeric"`
}
