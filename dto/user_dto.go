package dto

type UpdateUserStatusDTO struct {
	Status string `json:"status" binding:"required,oneof=APPROVED REJECTED"`
}

type UpdateUserRoleDTO struct {
	Role string `json:"role" binding:"required,oneof=ADMIN RSSI SSI"`
}
