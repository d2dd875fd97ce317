package dto

import "github.com/noah-isme/membership-api/internal/models"

// StudentListResponse wraps student lists.
type StudentListResponse struct {
	Students []models.Student `json:"students"`
}

// StudentMutationResponse is returned by delete and renew.
type StudentMutationResponse struct {
	Message string         `json:"message"`
	Student models.Student `json:"student"`
}
