package models

import (
	"time"

	_ "github.com/lib/pq"
)

type User struct {
	ID        int       `json:"id" example:"1"`
	Email     string    `json:"email" example:"user@example.com"`
	Password  string    `json:"password" example:""`
	FirstName string    `json:"first_name" example:"John"`
	LastName  string    `json:"last_name" example:"Doe"`
	IsAdmin   bool      `json:"is_admin" example:"false"`
	Suspended bool      `json:"suspended" example:"false"`
	CreatedAt time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt time.Time `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

type Session struct {
	UserID                int       `json:"user_id"`
	SessionID             string    `json:"session_id"`
	HostName              string    `json:"host_name"`
	IPAddress             string    `json:"ip_address"`
	Timestamp             time.Time `json:"timestp"`
	ExpiresAt             time.Time `json:"expires_at"`
	RefreshToken          string    `json:"refresh_token,omitempty"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at,omitempty"`
}

// Vendor represents the inv_vendors table (the vendor catalog that
// document vendor links point into).
type Vendor struct {
	VendorID   int       `json:"vendor_id" example:"9"`
	Name       string    `json:"name" example:"ABC Suppliers"`
	Email      string    `json:"email" example:"sales@abc.example"`
	Phone      string    `json:"phone" example:"9876543210"`
	Address    string    `json:"address" example:"123 Industrial Area"`
	Status     string    `json:"status" example:"active"`
	VendorType string    `json:"vendor_type" example:"material"`
	ProjectID  int       `json:"project_id" example:"1"`
	CreatedAt  time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt  time.Time `json:"updated_at" example:"2024-01-15T10:30:00Z"`
	CreatedBy  string    `json:"created_by" example:"admin"`
	UpdatedBy  string    `json:"updated_by" example:"admin"`
}

// Product represents the products catalog rows joined into document
// items for display.
type Product struct {
	ID   int    `json:"id" example:"204"`
	Name string `json:"name" example:"TMT Bar 12mm"`
	Unit string `json:"unit" example:"kg"`
}
