package jwttoken

import (
	authmw "trainingcenter/pkg/platform/middleware/auth"
)

// JWTServiceAdapter lets the auth middleware verify tokens without knowing
// the claim layout.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{StaffID: claims.Subject, Role: claims.Role, JTI: claims.ID}, nil
}
