package domain

// Role is a user role as listed by the API.
type Role struct {
	ID          int64  `json:"idRol"`
	Name        string `json:"nombre"`
	Description string `json:"descripcion,omitempty"`
}
