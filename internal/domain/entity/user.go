package entity

import "time"

// Roles válidos para User.
const (
	RoleAdmin     = "admin"
	RoleComprador = "comprador"
)

// User representa un usuario del sistema de cotizaciones.
type User struct {
	ID           string
	Email        string
	PasswordHash string // bcrypt hash, nunca plano en dominio después de persistir
	Name         string
	Role         string // admin, comprador
	Status       string // active, inactive
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
