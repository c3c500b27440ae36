package dto

type CreateResetRequestDTO struct {
	Email string `json:"email" binding:"required,email"`
}

type ReviewResetRequestDTO struct {
	Decision string `json:"decision" binding:"required,oneof=approve reject"`
	Notes    string `json:"notes" binding:"max=5000"`
}

type RedeemResetDTO struct {
	Email       string `json:"email" binding:"required,email"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}
